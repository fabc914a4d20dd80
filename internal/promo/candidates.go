package promo

import "github.com/example/danceschool-promos/internal/school"

// selectCandidates applies the structural rule and the idempotence check: a
// customer qualifies iff they registered in the recent qualifying series set
// and have no other registrations in the target level, ever, and the sent
// marker is not already present. The marker check lives here, in one place,
// rather than in the count query, so it is applied even if the counts ever
// double-select a customer.
func selectCandidates(counts []school.RegistrationCount, markerKey string) []school.Customer {
	var out []school.Customer
	for _, rc := range counts {
		if rc.ThisRun == 0 {
			continue
		}
		if rc.Lifetime-rc.ThisRun != 0 {
			continue
		}
		if rc.Customer.PromotionState(markerKey).Sent {
			continue
		}
		out = append(out, rc.Customer)
	}
	return out
}
