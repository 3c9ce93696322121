package contact

import (
	"github.com/tarqumi/agency-api/pkg/models"
	"github.com/tarqumi/agency-api/pkg/spam"
)

// Effect is a side effect the orchestrator must perform alongside
// persisting the submission, inside the same transaction.
type Effect int

const (
	// EffectRecordSpamHit updates BlockedIp bookkeeping for the source IP.
	EffectRecordSpamHit Effect = iota
	// EffectNotify fans the submission out into email queue rows.
	EffectNotify
)

// Decision is the outcome of classifying a scored submission: the status
// to persist and the effects to apply. Classification itself is pure so
// the transaction boundary stays in one place.
type Decision struct {
	Status  string
	Score   spam.Result
	Effects []Effect
}

// Classify turns a spam score into a creation decision. A submission is
// born directly in "new" or "spam"; it never transitions between the two
// at intake time.
func Classify(res spam.Result, threshold int) Decision {
	if res.Score >= threshold {
		return Decision{
			Status:  models.StatusSpam,
			Score:   res,
			Effects: []Effect{EffectRecordSpamHit},
		}
	}
	return Decision{
		Status:  models.StatusNew,
		Score:   res,
		Effects: []Effect{EffectNotify},
	}
}
