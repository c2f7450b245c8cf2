package penalty

// RunSummary reports one accrual sweep. Failed loans are retried on the
// next run; the accrual key keeps the retry from double-charging.
type RunSummary struct {
	Period       string `json:"period"`
	LoansScanned int    `json:"loans_scanned"`
	LoansCharged int    `json:"loans_charged"`
	TotalCharged int64  `json:"total_charged"`
	Failed       int    `json:"failed"`
}
