package uda

import (
	"context"
	"fmt"
	"net/http"
	"uda-connector/internal/spreadsheet"
	"uda-connector/pkg/udamember"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_client_retrieve_members  = "client.retrieve-members"
	report_client_members_from_rows = "client.members-from-rows"
)

const exportPath = "/en/organization_memberships/export.xls"

// RetrieveMembers downloads the organization membership export and returns
// its competitors in worksheet order. The client must be authenticated.
//
// It returns ErrOrganizationMembershipsAccessFailed, ErrLackOfPermissions or
// ErrMalformedXlsFile.
func (c *Client) RetrieveMembers(ctx context.Context) ([]udamember.Member, error) {
	ctx, span := tracer.Start(ctx, "client:RetrieveMembers")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.url(exportPath))
	if err != nil {
		c.tel.ReportBroken(
			report_client_retrieve_members,
			fmt.Errorf("fetch export: %w", err),
		)
		span.SetStatus(codes.Error, "failed to fetch export")
		return nil, ErrOrganizationMembershipsAccessFailed
	}

	switch {
	case res.IsSuccess():
	case res.StatusCode() == http.StatusUnauthorized:
		c.tel.ReportBroken(
			report_client_retrieve_members,
			fmt.Errorf("export answered 401, lack of permissions?"),
		)
		span.SetStatus(codes.Error, "lack of permissions")
		return nil, ErrLackOfPermissions
	default:
		c.tel.ReportBroken(
			report_client_retrieve_members,
			fmt.Errorf("export answered %d", res.StatusCode()),
		)
		span.SetStatus(codes.Error, "unexpected export status")
		return nil, ErrOrganizationMembershipsAccessFailed
	}

	body := res.Body()
	span.SetAttributes(attribute.Int("uda.export_bytes", len(body)))

	members, err := c.membersFromXls(body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("uda.members", len(members)))
	return members, nil
}

func (c *Client) membersFromXls(data []byte) ([]udamember.Member, error) {
	wb, err := c.openWorkbook(data)
	if err != nil {
		c.tel.ReportBroken(report_client_retrieve_members, err)
		return nil, ErrMalformedXlsFile
	}
	return c.membersFromWorkbook(wb)
}

func (c *Client) membersFromWorkbook(wb spreadsheet.Workbook) ([]udamember.Member, error) {
	sheet, err := spreadsheet.FirstSheet(wb)
	if err != nil {
		c.tel.ReportBroken(
			report_client_retrieve_members,
			fmt.Errorf("read first sheet: %w", err),
		)
		return nil, ErrMalformedXlsFile
	}

	rows, err := spreadsheet.NewRowDeserializer[ImportedMember](sheet)
	if err != nil {
		c.tel.ReportBroken(
			report_client_retrieve_members,
			fmt.Errorf("read header of sheet %q: %w", sheet.Name, err),
		)
		return nil, ErrMalformedXlsFile
	}

	return c.membersFromRows(rows), nil
}

// membersFromRows keeps the competitors of the export. Rows that fail to
// deserialize are reported and skipped.
func (c *Client) membersFromRows(rows *spreadsheet.RowDeserializer[ImportedMember]) []udamember.Member {
	members := []udamember.Member{}
	for i := 0; i < rows.Len(); i++ {
		imported, err := rows.Row(i)
		if err != nil {
			c.tel.ReportWarning(
				report_client_members_from_rows,
				fmt.Errorf("can't deserialize member, ignoring: %w", err),
			)
			continue
		}
		if !imported.IsCompetitor() {
			continue
		}
		members = append(members, imported.Member())
	}

	c.tel.ReportCount(report_client_members_from_rows, int64(len(members)))
	return members
}
