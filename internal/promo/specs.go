package promo

// VoucherSpec is a static description of one discount the promotion grants.
type VoucherSpec struct {
	Key                   string
	Name                  string
	Amount                int
	Prefix                string
	ExpiresAfterMonths    int
	RestrictToTargetLevel bool
}

// Two vouchers per customer: a retake discount locked to the level they just
// completed, and a smaller continue discount usable on anything.
var voucherSpecs = []VoucherSpec{
	{
		Key:                   "Lindy_1",
		Name:                  "Swing 1",
		Amount:                35,
		Prefix:                "SWING1_RETAKE_",
		ExpiresAfterMonths:    6,
		RestrictToTargetLevel: true,
	},
	{
		Key:                "Lindy_2",
		Name:               "Swing 2",
		Amount:             15,
		Prefix:             "SWING2_CONTINUE_",
		ExpiresAfterMonths: 3,
	},
}
