package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/stroomalert/stroomalert/models"
	"github.com/xuri/excelize/v2"
)

// ExportReport renders the current engine state into an xlsx workbook with
// one sheet for outages and one for campaigns, for ops reporting.
func (f *CampaignFlowImpl) ExportReport(ctx context.Context) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	outageSheet := "Outages"
	xl.SetSheetName(xl.GetSheetName(0), outageSheet)
	if _, err := xl.NewSheet("Campaigns"); err != nil {
		return nil, NewBusinessError("REPORT_SHEET_FAILED", "Failed to create campaigns sheet", err)
	}

	outageHeaders := []string{"ID", "Network", "Households", "City", "Province", "Severity", "Status", "First seen", "Last updated", "Resolved at"}
	for ci, h := range outageHeaders {
		cell, _ := excelize.CoordinatesToCellName(ci+1, 1)
		_ = xl.SetCellValue(outageSheet, cell, h)
	}

	var incidents []*models.Incident
	for _, incident := range f.state.Incidents.ActiveIncidents() {
		incidents = append(incidents, incident)
	}
	for _, incident := range f.state.Incidents.ResolvedIncidents() {
		incidents = append(incidents, incident)
	}
	sort.Slice(incidents, func(i, j int) bool { return incidents[i].FirstSeen.After(incidents[j].FirstSeen) })

	for ri, incident := range incidents {
		resolvedAt := ""
		if incident.ResolvedAt != nil {
			resolvedAt = incident.ResolvedAt.Format("2006-01-02 15:04")
		}
		row := []any{
			incident.ID,
			incident.NetworkType.String(),
			incident.ImpactHouseholds,
			incident.Location.City,
			incident.Location.Province,
			incident.Severity.Level.String(),
			incident.Status,
			incident.FirstSeen.Format("2006-01-02 15:04"),
			incident.LastUpdated.Format("2006-01-02 15:04"),
			resolvedAt,
		}
		for ci, v := range row {
			cell, _ := excelize.CoordinatesToCellName(ci+1, ri+2)
			_ = xl.SetCellValue(outageSheet, cell, v)
		}
	}

	campaignHeaders := []string{"Outage ID", "Platform", "Budget/day", "Status", "Created", "Expires"}
	for ci, h := range campaignHeaders {
		cell, _ := excelize.CoordinatesToCellName(ci+1, 1)
		_ = xl.SetCellValue("Campaigns", cell, h)
	}

	ri := 0
	ledger := f.state.Ledger.AllCampaigns()
	ids := make([]string, 0, len(ledger))
	for id := range ledger {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, incidentID := range ids {
		for _, platform := range models.AllPlatforms() {
			campaign := ledger[incidentID].Get(platform)
			if campaign == nil {
				continue
			}
			row := []any{
				incidentID,
				platform.String(),
				fmt.Sprintf("%.2f", campaign.Budget),
				campaign.Status.String(),
				campaign.CreatedAt.Format("2006-01-02 15:04"),
				campaign.ExpiresAt.Format("2006-01-02 15:04"),
			}
			for ci, v := range row {
				cell, _ := excelize.CoordinatesToCellName(ci+1, ri+2)
				_ = xl.SetCellValue("Campaigns", cell, v)
			}
			ri++
		}
	}

	var buf bytes.Buffer
	if err := xl.Write(&buf); err != nil {
		return nil, NewBusinessError("REPORT_WRITE_FAILED", "Failed to write report workbook", err)
	}
	return buf.Bytes(), nil
}
