package scheduler

// Dimension is the resource axis along which two sessions compete.
type Dimension string

const (
	// DimensionTeacher reports a teacher booked for overlapping sessions.
	DimensionTeacher Dimension = "teacher"
	// DimensionClassroom reports a room hosting overlapping sessions.
	DimensionClassroom Dimension = "classroom"
	// DimensionClass reports a class attending overlapping sessions.
	DimensionClass Dimension = "class"
)

var allDimensions = []Dimension{DimensionTeacher, DimensionClassroom, DimensionClass}

// ConflictInfo details an existing session that collides with a candidate.
type ConflictInfo struct {
	Dimension Dimension
	Session   Session
}

// Detect reports every existing session that collides with the candidate on
// any resource dimension.
func Detect(candidate Draft, existing []Session) []ConflictInfo {
	return DetectDimensions(candidate, existing, allDimensions...)
}

// DetectDimensions reports collisions on the requested dimensions only.
//
// Sessions collide when they fall on the same date, their slots overlap
// (touching endpoints are free), and they share the resource. Cancelled
// sessions hold no resources. An existing session carrying the candidate's
// own non-empty ID is skipped. Results follow the order of existing and,
// per session, the order of dims. Inputs are never modified.
func DetectDimensions(candidate Draft, existing []Session, dims ...Dimension) []ConflictInfo {
	if len(existing) == 0 || len(dims) == 0 {
		return nil
	}

	var conflicts []ConflictInfo
	for _, other := range existing {
		if other.Status == StatusCancelled {
			continue
		}
		if candidate.ID != "" && other.ID == candidate.ID {
			continue
		}
		if other.Date != candidate.Date || !candidate.Slot.Overlaps(other.Slot) {
			continue
		}

		for _, dim := range dims {
			if !sharesResource(dim, candidate, other) {
				continue
			}
			conflicts = append(conflicts, ConflictInfo{Dimension: dim, Session: other.Clone()})
		}
	}

	return conflicts
}

func sharesResource(dim Dimension, candidate Draft, other Session) bool {
	switch dim {
	case DimensionTeacher:
		return candidate.TeacherID != "" && candidate.TeacherID == other.EffectiveTeacherID()
	case DimensionClassroom:
		if candidate.ClassroomID == nil || other.ClassroomID == nil {
			return false
		}
		return *candidate.ClassroomID != "" && *candidate.ClassroomID == *other.ClassroomID
	case DimensionClass:
		return candidate.ClassID != "" && candidate.ClassID == other.ClassID
	default:
		return false
	}
}
