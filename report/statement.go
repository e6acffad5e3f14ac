// Package report builds per-model payout statements for archived periods.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/advances"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/closure"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/earnings"
	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// EarningsReader aggregates a closed period.
type EarningsReader interface {
	Aggregate(ctx context.Context, modelID int64, period shared.Period) (earnings.AggregateResult, error)
}

// ArchiveReader lists the frozen per-platform records of a period.
type ArchiveReader interface {
	ArchivedRecords(ctx context.Context, period shared.Period, modelIDs []int64) ([]closure.ArchivedRecord, error)
}

// LedgerReader lists the adjustments netted out of the payout.
type LedgerReader interface {
	ListDeductions(ctx context.Context, modelID int64, period shared.Period) ([]advances.Deduction, error)
	ListAdvances(ctx context.Context, modelID int64, period shared.Period) ([]advances.Advance, error)
}

// StatementLine is one archived per-platform row of the statement.
type StatementLine struct {
	PlatformID      string          `json:"platform_id"`
	RawValue        decimal.Decimal `json:"raw_value"`
	Gross           decimal.Decimal `json:"gross"`
	ModelSettlement decimal.Decimal `json:"model_settlement"`
	ModelLocal      decimal.Decimal `json:"model_local"`
}

// StatementAdjustment is one deduction or disbursed advance.
type StatementAdjustment struct {
	Concept string          `json:"concept"`
	Amount  decimal.Decimal `json:"amount"`
}

// Statement is the closed-period payout summary for one model.
type Statement struct {
	ModelID     int64                 `json:"model_id"`
	Period      shared.Period         `json:"period"`
	Lines       []StatementLine       `json:"lines"`
	Deductions  []StatementAdjustment `json:"deductions"`
	Advances    []StatementAdjustment `json:"advances"`
	TotalLocal  decimal.Decimal       `json:"total_local"`
	NetPayable  decimal.Decimal       `json:"net_payable"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// Service assembles payout statements.
type Service struct {
	earnings EarningsReader
	archive  ArchiveReader
	ledger   LedgerReader
	now      func() time.Time
}

// NewService constructs a statement service.
func NewService(earnings EarningsReader, archive ArchiveReader, ledger LedgerReader) *Service {
	return &Service{
		earnings: earnings,
		archive:  archive,
		ledger:   ledger,
		now:      time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Statement builds the payout statement for one model and archived period.
func (s *Service) Statement(ctx context.Context, modelID int64, period shared.Period) (Statement, error) {
	if modelID <= 0 {
		return Statement{}, fmt.Errorf("report: model id required")
	}
	agg, err := s.earnings.Aggregate(ctx, modelID, period)
	if err != nil {
		return Statement{}, err
	}
	if !agg.Archived {
		return Statement{}, fmt.Errorf("%w: statements require an archived period", shared.ErrPeriodNotClosed)
	}
	records, err := s.archive.ArchivedRecords(ctx, period, []int64{modelID})
	if err != nil {
		return Statement{}, err
	}
	stmt := Statement{
		ModelID:     modelID,
		Period:      period,
		Lines:       make([]StatementLine, 0, len(records)),
		TotalLocal:  agg.TotalModelLocal,
		NetPayable:  agg.NetPayable,
		GeneratedAt: s.now().UTC(),
	}
	for _, rec := range records {
		stmt.Lines = append(stmt.Lines, StatementLine{
			PlatformID:      rec.PlatformID,
			RawValue:        rec.RawValue,
			Gross:           rec.Gross,
			ModelSettlement: rec.ModelSettlement,
			ModelLocal:      rec.ModelLocal,
		})
	}
	deductions, err := s.ledger.ListDeductions(ctx, modelID, period)
	if err != nil {
		return Statement{}, err
	}
	for _, ded := range deductions {
		stmt.Deductions = append(stmt.Deductions, StatementAdjustment{Concept: ded.Concept, Amount: ded.Amount})
	}
	advs, err := s.ledger.ListAdvances(ctx, modelID, period)
	if err != nil {
		return Statement{}, err
	}
	for _, adv := range advs {
		if adv.Status != advances.StatusDisbursed && adv.Status != advances.StatusConfirmed {
			continue
		}
		stmt.Advances = append(stmt.Advances, StatementAdjustment{
			Concept: fmt.Sprintf("anticipo #%d", adv.ID),
			Amount:  adv.AmountRequested,
		})
	}
	return stmt, nil
}

var spanishCO = language.MustParse("es-CO")

// FormatAmount renders a monetary value with es-CO digit grouping.
func FormatAmount(value decimal.Decimal) string {
	printer := message.NewPrinter(spanishCO)
	f, _ := value.Float64()
	return printer.Sprintf("%.2f", f)
}

// Render writes the statement as plain text for delivery to the model.
func (s Statement) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Estado de cuenta %s / modelo %d\n", s.Period, s.ModelID)
	fmt.Fprintf(&b, "Generado: %s\n\n", s.GeneratedAt.Format("2006-01-02 15:04 MST"))
	b.WriteString("Plataformas:\n")
	for _, line := range s.Lines {
		fmt.Fprintf(&b, "  %-16s bruto USD %s  modelo USD %s  COP %s\n",
			line.PlatformID,
			FormatAmount(line.Gross),
			FormatAmount(line.ModelSettlement),
			FormatAmount(line.ModelLocal),
		)
	}
	if len(s.Deductions) > 0 {
		b.WriteString("\nDeducciones:\n")
		for _, ded := range s.Deductions {
			fmt.Fprintf(&b, "  %-24s -COP %s\n", ded.Concept, FormatAmount(ded.Amount))
		}
	}
	if len(s.Advances) > 0 {
		b.WriteString("\nAnticipos desembolsados:\n")
		for _, adv := range s.Advances {
			fmt.Fprintf(&b, "  %-24s -COP %s\n", adv.Concept, FormatAmount(adv.Amount))
		}
	}
	fmt.Fprintf(&b, "\nTotal COP: %s\n", FormatAmount(s.TotalLocal))
	fmt.Fprintf(&b, "Neto a pagar COP: %s\n", FormatAmount(s.NetPayable))
	return b.String()
}
