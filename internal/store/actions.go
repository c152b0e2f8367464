package store

import (
	"github.com/utafrali/fitvibe/internal/domain"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
)

// Actions lists what the viewer may do with a review or reply.
type Actions struct {
	CanEdit   bool
	CanDelete bool
	// CanReport is set for signed-in viewers who did not write the item.
	CanReport bool
	// ReportDisabled is set when the viewer already reported the item.
	ReportDisabled bool
}

// actionsFor applies the shared rules: authors edit, authors and admins
// delete, every other signed-in viewer reports once. Anonymous visitors get
// nothing.
func actionsFor(v domain.Viewer, author domain.Author, reportedBy func(string) bool) Actions {
	if v.Anonymous() {
		return Actions{}
	}
	own := v.Owns(author)
	a := Actions{
		CanEdit:   own,
		CanDelete: own || v.IsAdmin(),
		CanReport: !own,
	}
	if a.CanReport && reportedBy(v.ID) {
		a.ReportDisabled = true
	}
	return a
}

func (a Actions) reportError(what string) error {
	switch {
	case !a.CanReport:
		return apperrors.NotAuthorized("You cannot report this " + what)
	case a.ReportDisabled:
		return apperrors.NotAuthorized("You already reported this " + what)
	}
	return nil
}
