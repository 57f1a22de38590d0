package plan

// ChangeSummary counts the planned actions on managed AWS resources, as
// listed in the plan's resource_changes.
type ChangeSummary struct {
	Create  int `json:"create"`
	Update  int `json:"update"`
	Delete  int `json:"delete"`
	Replace int `json:"replace"`
	NoOp    int `json:"no_op"`
}

// Changed is the number of resources the plan would touch.
func (c ChangeSummary) Changed() int {
	return c.Create + c.Update + c.Delete + c.Replace
}

// SummarizeChanges tallies resource_changes. Child module changes are
// counted only when includeChildren is set, matching Extract/ExtractAll.
func SummarizeChanges(doc *Document, includeChildren bool) ChangeSummary {
	var s ChangeSummary
	if doc == nil {
		return s
	}
	for _, rc := range doc.ResourceChanges {
		if rc == nil || rc.Change == nil || !isManagedAWS(rc.Mode, rc.Type) {
			continue
		}
		if rc.ModuleAddress != "" && !includeChildren {
			continue
		}
		a := rc.Change.Actions
		switch {
		case a.Replace():
			s.Replace++
		case a.Create():
			s.Create++
		case a.Update():
			s.Update++
		case a.Delete():
			s.Delete++
		case a.NoOp():
			s.NoOp++
		}
	}
	return s
}
