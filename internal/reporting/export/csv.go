// Package export renders reporting summaries as CSV.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rentdash/rentdash/internal/reporting"
)

// Report names selectable through the report query parameter of the CSV endpoint.
const (
	ReportFinancial   = "financial"
	ReportMaintenance = "maintenance"
	ReportContracts   = "contracts"
	ReportOccupancy   = "occupancy"
)

// WriteFinancialCSV emits one row per financial period.
func WriteFinancialCSV(w io.Writer, series []reporting.FinancialSummary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{
		"Period", "Start", "End", "Potential Revenue", "Revenue", "Rent", "Service", "Late Fees",
		"Unpaid", "Overdue", "Partially Paid", "Processing", "Total Unpaid",
		"Maintenance Cost", "Estimated Maintenance", "Net Profit", "Profit Margin", "Collection Rate", "Bills",
	}); err != nil {
		return err
	}
	for _, s := range series {
		if err := writer.Write([]string{
			s.Period.Label(),
			formatDate(s.Period),
			formatEnd(s.Period),
			formatFloat(s.TotalPotentialRevenue),
			formatFloat(s.TotalRevenue),
			formatFloat(s.RentRevenue),
			formatFloat(s.ServiceRevenue),
			formatFloat(s.LateFeeRevenue),
			formatFloat(s.UnpaidAmount),
			formatFloat(s.OverdueAmount),
			formatFloat(s.PartiallyPaidAmount),
			formatFloat(s.ProcessingAmount),
			formatFloat(s.TotalUnpaidAmount),
			formatFloat(s.MaintenanceCost),
			formatFloat(s.EstimatedMaintenanceCost),
			formatFloat(s.NetProfit),
			formatFloat(s.ProfitMargin),
			formatFloat(s.CollectionRate),
			strconv.Itoa(s.TotalBillsCount),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteMaintenanceCSV emits one row per maintenance period.
func WriteMaintenanceCSV(w io.Writer, series []reporting.MaintenanceSummary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{
		"Period", "Start", "End", "Tickets", "Pending", "In Progress", "Completed", "Cancelled",
		"Requests", "Pending Requests", "Approved Requests", "Rejected Requests",
		"Completion Rate", "Total Cost", "Avg Cost Per Request", "Avg Resolution Days",
	}); err != nil {
		return err
	}
	for _, s := range series {
		if err := writer.Write([]string{
			s.Period.Label(),
			formatDate(s.Period),
			formatEnd(s.Period),
			strconv.Itoa(s.TotalTicketCount),
			strconv.Itoa(s.PendingTicketCount),
			strconv.Itoa(s.InProgressTicketCount),
			strconv.Itoa(s.CompletedTicketCount),
			strconv.Itoa(s.CancelledTicketCount),
			strconv.Itoa(s.TotalRequestCount),
			strconv.Itoa(s.PendingRequestCount),
			strconv.Itoa(s.ApprovedRequestCount),
			strconv.Itoa(s.RejectedRequestCount),
			formatFloat(s.CompletionRate),
			formatFloat(s.TotalMaintenanceCost),
			formatFloat(s.AvgCostPerRequest),
			formatFloat(s.AvgResolutionDays),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteContractCSV emits one row per contract period.
func WriteContractCSV(w io.Writer, series []reporting.ContractSummary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{
		"Period", "Start", "End", "Contracts", "Draft", "Active", "Expired", "Terminated",
		"New", "Renewals", "Terminations", "Renewal Rate", "Churn Rate",
		"Expiring 30d", "Expiring 60d", "Expiring 90d",
	}); err != nil {
		return err
	}
	for _, s := range series {
		if err := writer.Write([]string{
			s.Period.Label(),
			formatDate(s.Period),
			formatEnd(s.Period),
			strconv.Itoa(s.TotalContracts),
			strconv.Itoa(s.DraftContracts),
			strconv.Itoa(s.ActiveContracts),
			strconv.Itoa(s.ExpiredContracts),
			strconv.Itoa(s.TerminatedContracts),
			strconv.Itoa(s.NewContracts),
			strconv.Itoa(s.Renewals),
			strconv.Itoa(s.Terminations),
			formatFloat(s.RenewalRate),
			formatFloat(s.ChurnRate),
			strconv.Itoa(s.Expiring30Days),
			strconv.Itoa(s.Expiring60Days),
			strconv.Itoa(s.Expiring90Days),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteOccupancyCSV prints the snapshot as metric/value pairs.
func WriteOccupancyCSV(w io.Writer, s reporting.OccupancySummary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	records := [][]string{
		{"As Of", s.AsOf},
		{"Total Rooms", strconv.Itoa(s.TotalRooms)},
		{"Occupied Rooms", strconv.Itoa(s.OccupiedRooms)},
		{"Vacant Rooms", strconv.Itoa(s.VacantRooms)},
		{"Maintenance Rooms", strconv.Itoa(s.MaintenanceRooms)},
		{"Deposited Rooms", strconv.Itoa(s.DepositedRooms)},
		{"Active Contracts", strconv.Itoa(s.ActiveContracts)},
		{"Expiring Soon", strconv.Itoa(s.ExpiringSoonContracts)},
		{"Tenants", strconv.Itoa(s.TotalTenants)},
		{"Revenue Loss", formatFloat(s.RevenueLoss)},
		{"Occupancy Rate", formatFloat(s.OccupancyRate)},
	}
	if err := writer.WriteAll(records); err != nil {
		return err
	}
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatDate(p reporting.Period) string { return p.Start.Format("2006-01-02") }

func formatEnd(p reporting.Period) string { return p.End.Format("2006-01-02") }
