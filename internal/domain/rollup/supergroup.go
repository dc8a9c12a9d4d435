package rollup

import "github.com/garyjia/record-review/internal/domain/entity"

// SuperGroup folds several statuses into one dashboard bucket
type SuperGroup string

const (
	SuperGroupDraft          SuperGroup = "draft"
	SuperGroupInProgress     SuperGroup = "in_progress"
	SuperGroupClosedPositive SuperGroup = "closed_positive"
	SuperGroupClosedNegative SuperGroup = "closed_negative"
	SuperGroupOther          SuperGroup = "other"
)

var superGroupOrder = []SuperGroup{
	SuperGroupDraft,
	SuperGroupInProgress,
	SuperGroupClosedPositive,
	SuperGroupClosedNegative,
	SuperGroupOther,
}

var common = map[entity.Status]SuperGroup{
	entity.StatusDraft:     SuperGroupDraft,
	entity.StatusReopened:  SuperGroupDraft,
	entity.StatusSubmitted: SuperGroupInProgress,
	entity.StatusApproved:  SuperGroupClosedPositive,
	entity.StatusRejected:  SuperGroupClosedNegative,
	entity.StatusCancelled: SuperGroupClosedNegative,
}

// Statuses only some types reach. Anything a type never reaches lands in other.
var superGroups = map[entity.RecordType]map[entity.Status]SuperGroup{
	entity.RecordTypeTrip: with(common, map[entity.Status]SuperGroup{
		entity.StatusVerified: SuperGroupInProgress,
	}),
	entity.RecordTypeReport: with(common, map[entity.Status]SuperGroup{
		entity.StatusUnderReview: SuperGroupInProgress,
	}),
	entity.RecordTypeTender: with(common, map[entity.Status]SuperGroup{
		entity.StatusUnderReview: SuperGroupInProgress,
		entity.StatusLost:        SuperGroupClosedNegative,
	}),
	entity.RecordTypeExpenditure: with(common, nil),
}

func with(base, extra map[entity.Status]SuperGroup) map[entity.Status]SuperGroup {
	out := make(map[entity.Status]SuperGroup, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// SuperGroupOf returns the bucket a status belongs to for a record type
func SuperGroupOf(recordType entity.RecordType, status entity.Status) SuperGroup {
	if sg, ok := superGroups[recordType][status]; ok {
		return sg
	}
	return SuperGroupOther
}
