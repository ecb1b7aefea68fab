package domain

// PointRef identifies what a point transaction was awarded for. The zero value
// means no reference. Build one with the variant constructors below; the
// stored reference_type/reference_id columns are derived from it.
type PointRef struct {
	kind refKind
	id   uint
}

type refKind string

const (
	refNone     refKind = ""
	refTask     refKind = "task"
	refReferral refKind = "referral"
	refLevel    refKind = "level"
	refProfile  refKind = "profile"
	refBadge    refKind = "badge"
	refLogin    refKind = "login"
)

func NoRef() PointRef { return PointRef{} }

// TaskRef points at a completed task.
func TaskRef(taskID uint) PointRef { return PointRef{kind: refTask, id: taskID} }

// ReferralRef points at the referee whose signup earned the points.
func ReferralRef(refereeID uint) PointRef { return PointRef{kind: refReferral, id: refereeID} }

// LevelRef points at the level_settings row that was reached.
func LevelRef(levelID uint) PointRef { return PointRef{kind: refLevel, id: levelID} }

func ProfileRef(userID uint) PointRef { return PointRef{kind: refProfile, id: userID} }

func BadgeRef(badgeID uint) PointRef { return PointRef{kind: refBadge, id: badgeID} }

// LoginRef carries the streak length the daily bonus was computed from.
func LoginRef(streak uint) PointRef { return PointRef{kind: refLogin, id: streak} }

func (r PointRef) IsZero() bool { return r.kind == refNone }

func (r PointRef) Kind() string { return string(r.kind) }

func (r PointRef) ID() uint { return r.id }

// Columns returns the nullable column pair persisted with the transaction.
func (r PointRef) Columns() (refType *string, refID *uint) {
	if r.IsZero() {
		return nil, nil
	}
	k := string(r.kind)
	id := r.id
	return &k, &id
}

// ParsePointRef rebuilds a reference from stored columns. Unknown kinds
// collapse to NoRef.
func ParsePointRef(refType *string, refID *uint) PointRef {
	if refType == nil || refID == nil {
		return NoRef()
	}
	switch k := refKind(*refType); k {
	case refTask, refReferral, refLevel, refProfile, refBadge, refLogin:
		return PointRef{kind: k, id: *refID}
	}
	return NoRef()
}
