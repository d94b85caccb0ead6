package persistence

// HandoffState is the two-flag document the main process writes and the
// notifier polls. Last writer wins.
type HandoffState struct {
	Active   bool `json:"active"`
	InReview bool `json:"inReview"`
}

type handoffData struct {
	Active   *bool `json:"active"`
	InReview *bool `json:"inReview"`
}

// DueCountSnapshot is the last due count computed by the main process.
type DueCountSnapshot struct {
	Count         int    `json:"count"`
	CategoryLabel string `json:"categoryLabel"`
}

func WriteHandoff(l Layout, state HandoffState) error {
	return WriteJSON(l.HandoffPath(), state)
}

// ReadHandoff returns an error for a missing or malformed file so callers can
// keep whatever they saw last. A missing "active" key reads as true.
func ReadHandoff(l Layout) (HandoffState, error) {
	var data handoffData
	if err := readJSON(l.HandoffPath(), &data); err != nil {
		return HandoffState{}, err
	}

	state := HandoffState{Active: true}
	if data.Active != nil {
		state.Active = *data.Active
	}
	if data.InReview != nil {
		state.InReview = *data.InReview
	}
	return state, nil
}

func WriteSnapshot(l Layout, snap DueCountSnapshot) error {
	return WriteJSON(l.SnapshotPath(), snap)
}

func ReadSnapshot(l Layout) (DueCountSnapshot, error) {
	snap := DueCountSnapshot{CategoryLabel: AllCategories}
	if err := readJSON(l.SnapshotPath(), &snap); err != nil {
		return DueCountSnapshot{}, err
	}
	if snap.Count < 0 {
		snap.Count = 0
	}
	if snap.CategoryLabel == "" {
		snap.CategoryLabel = AllCategories
	}
	return snap, nil
}
