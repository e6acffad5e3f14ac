package shared

// Capabilities consumed by the earnings core.
const (
	CapRatesView       = "rates.view"
	CapRatesEdit       = "rates.edit"
	CapEarningsView    = "earnings.view"
	CapEarningsEdit    = "earnings.edit"
	CapClosureRun      = "closure.run"
	CapClosureEdit     = "closure.edit"
	CapAdvancesRequest = "advances.request"
	CapAdvancesManage  = "advances.manage"
	CapDeductionsEdit  = "deductions.edit"
	CapSavingsRequest  = "savings.request"
	CapAuditView       = "audit.view"
)

// CoreCapabilities lists every capability known to the system.
func CoreCapabilities() []string {
	return []string{
		CapRatesView,
		CapRatesEdit,
		CapEarningsView,
		CapEarningsEdit,
		CapClosureRun,
		CapClosureEdit,
		CapAdvancesRequest,
		CapAdvancesManage,
		CapDeductionsEdit,
		CapSavingsRequest,
		CapAuditView,
	}
}
