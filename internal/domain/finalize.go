package domain

// Verdict is the tri-state outcome of one verification check. A ledger
// that cannot be reached yields VerdictPending, never VerdictFail.
type Verdict uint8

const (
	VerdictPending Verdict = iota
	VerdictPass
	VerdictFail
)

func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "pass"
	case VerdictFail:
		return "fail"
	default:
		return "pending"
	}
}

// FinalizationRecord tracks one finalize proposal or received
// announcement. It is created once and updated in place as the local
// recompute and the ledger cross-check complete; Verified never rolls
// back once it reaches VerdictPass.
type FinalizationRecord struct {
	Hash            Digest
	TxHash          TxHash
	VerifiedLocally Verdict
	VerifiedOnChain Verdict
	Verified        Verdict
	ConfirmedBy     map[PartyID]struct{}
}

// NewFinalizationRecord returns a record for hash/tx confirmed by party.
func NewFinalizationRecord(hash Digest, tx TxHash, party PartyID) FinalizationRecord {
	return FinalizationRecord{
		Hash:        hash,
		TxHash:      tx,
		ConfirmedBy: map[PartyID]struct{}{party: {}},
	}
}

// Merge folds an update into the record. It is idempotent and safe to
// call from independently completing verification tasks: the first
// definitive verdict per check wins, ConfirmedBy accumulates as a set,
// and the combined Verified verdict is recomputed under the rule that
// both checks must pass for a pass, any definitive failure fails, and
// everything else stays pending.
func (r *FinalizationRecord) Merge(u FinalizationRecord) {
	if r.Hash == "" {
		r.Hash = u.Hash
	}
	if r.TxHash == "" {
		r.TxHash = u.TxHash
	}
	if r.VerifiedLocally == VerdictPending {
		r.VerifiedLocally = u.VerifiedLocally
	}
	if r.VerifiedOnChain == VerdictPending {
		r.VerifiedOnChain = u.VerifiedOnChain
	}
	if r.ConfirmedBy == nil {
		r.ConfirmedBy = make(map[PartyID]struct{})
	}
	for p := range u.ConfirmedBy {
		r.ConfirmedBy[p] = struct{}{}
	}
	if r.Verified == VerdictPass {
		return
	}
	switch {
	case r.VerifiedLocally == VerdictPass && r.VerifiedOnChain == VerdictPass:
		r.Verified = VerdictPass
	case r.VerifiedLocally == VerdictFail || r.VerifiedOnChain == VerdictFail:
		r.Verified = VerdictFail
	default:
		r.Verified = VerdictPending
	}
}

// Clone returns a deep copy safe to hand to callers.
func (r FinalizationRecord) Clone() FinalizationRecord {
	out := r
	out.ConfirmedBy = make(map[PartyID]struct{}, len(r.ConfirmedBy))
	for p := range r.ConfirmedBy {
		out.ConfirmedBy[p] = struct{}{}
	}
	return out
}
