package scheduler

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/example/class-scheduler/internal/recurrence"
)

// BatchRequest describes a set of sessions generated together from one rule.
type BatchRequest struct {
	Rule        recurrence.Rule
	Slots       []recurrence.TimeSlot
	TeacherID   string
	ClassroomID *string
	ClassID     string
	CourseID    string
	Holidays    recurrence.HolidaySet
}

// RejectedDraft is a draft that collided with existing or earlier batch sessions.
type RejectedDraft struct {
	Draft     Draft
	Conflicts []ConflictInfo
}

// BatchResult partitions a batch into accepted sessions and rejected drafts.
// Nothing in a BatchResult has been persisted.
type BatchResult struct {
	Accepted []Session
	Rejected []RejectedDraft
	// Digest fingerprints the manifest without generated identities so a
	// later commit can confirm it applies the reviewed plan.
	Digest string
}

// HasRejections reports whether any draft was rejected.
func (r BatchResult) HasRejections() bool {
	return len(r.Rejected) > 0
}

// Planner expands batch requests and validates them as a unit.
type Planner struct {
	engine *recurrence.Engine
	newID  func() string
}

// NewPlanner wires an expansion engine and identity source. A nil engine uses
// recurrence defaults and a nil newID uses random UUIDs.
func NewPlanner(engine *recurrence.Engine, newID func() string) *Planner {
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Planner{engine: engine, newID: newID}
}

// Engine returns the expansion engine used by the planner.
func (p *Planner) Engine() *recurrence.Engine {
	return p.engine
}

// BatchSchedule expands the request and checks every draft against existing
// plus the drafts already accepted from the same batch. Each accepted draft
// receives an identity and the scheduled status.
func (p *Planner) BatchSchedule(req BatchRequest, existing []Session) (BatchResult, error) {
	vErr := &ValidationError{}
	if strings.TrimSpace(req.TeacherID) == "" {
		vErr.add("teacher_id", "teacher id is required")
	}
	if strings.TrimSpace(req.ClassID) == "" {
		vErr.add("class_id", "class id is required")
	}
	if strings.TrimSpace(req.CourseID) == "" {
		vErr.add("course_id", "course id is required")
	}
	if vErr.HasErrors() {
		return BatchResult{}, vErr
	}

	occurrences, err := p.engine.Expand(req.Rule, req.Slots, req.Holidays)
	if err != nil {
		return BatchResult{}, err
	}

	var classroomID *string
	if req.ClassroomID != nil && strings.TrimSpace(*req.ClassroomID) != "" {
		room := strings.TrimSpace(*req.ClassroomID)
		classroomID = &room
	}

	pool := make([]Session, 0, len(existing)+len(occurrences))
	pool = append(pool, existing...)

	result := BatchResult{}
	for _, occ := range occurrences {
		draft := Draft{
			ClassID:     strings.TrimSpace(req.ClassID),
			CourseID:    strings.TrimSpace(req.CourseID),
			TeacherID:   strings.TrimSpace(req.TeacherID),
			ClassroomID: cloneString(classroomID),
			Date:        occ.Date,
			Slot:        occ.Slot,
			Sequence:    occ.Sequence,
		}

		if conflicts := Detect(draft, pool); len(conflicts) > 0 {
			result.Rejected = append(result.Rejected, RejectedDraft{Draft: draft, Conflicts: conflicts})
			continue
		}

		session := Session{
			ID:          p.newID(),
			ClassID:     draft.ClassID,
			CourseID:    draft.CourseID,
			TeacherID:   draft.TeacherID,
			ClassroomID: cloneString(draft.ClassroomID),
			Date:        draft.Date,
			Slot:        draft.Slot,
			Status:      StatusScheduled,
		}
		result.Accepted = append(result.Accepted, session)
		pool = append(pool, session)
	}

	result.Digest = manifestDigest(result)
	return result, nil
}

func manifestDigest(result BatchResult) string {
	// Sessions accepted earlier in the batch carry fresh identities, so they
	// are referenced by position instead.
	batchIndex := make(map[string]int, len(result.Accepted))
	var b strings.Builder
	for i, s := range result.Accepted {
		batchIndex[s.ID] = i
		fmt.Fprintf(&b, "A|%s|%s|%s|%s|%s|%s\n", s.Date, s.Slot, s.TeacherID, optional(s.ClassroomID), s.ClassID, s.CourseID)
	}
	for _, r := range result.Rejected {
		d := r.Draft
		fmt.Fprintf(&b, "R|%s|%s|%s|%s|%s|%s", d.Date, d.Slot, d.TeacherID, optional(d.ClassroomID), d.ClassID, d.CourseID)
		for _, c := range r.Conflicts {
			ref := c.Session.ID
			if idx, ok := batchIndex[ref]; ok {
				ref = fmt.Sprintf("#%d", idx)
			}
			fmt.Fprintf(&b, "|%s:%s", c.Dimension, ref)
		}
		b.WriteByte('\n')
	}
	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func optional(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
