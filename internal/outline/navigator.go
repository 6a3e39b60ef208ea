package outline

type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyEnter
	KeyDelete
)

// Action is what the navigator delegates back to the caller. Selection moves
// and expand/collapse are applied to State directly; edit and delete belong
// to the host (the edit surface and the mutation coordinator).
type Action int

const (
	ActionNone Action = iota
	ActionEdit
	ActionDelete
)

// Navigate advances selection and expansion over the visible rows for one
// keypress. The rows must be the current projection; index arithmetic
// assumes they are fresh. Boundary moves do not wrap. Hosts suppress
// Navigate entirely while a text input has focus.
func Navigate(rows []Row, st *State, key Key) Action {
	if len(rows) == 0 {
		return ActionNone
	}

	cur := selectedIndex(rows, st)
	if cur < 0 {
		// Nothing selected yet: land on an end of the projection.
		switch key {
		case KeyUp, KeyEnd:
			selectRow(st, rows[len(rows)-1])
		case KeyDown, KeyHome, KeyRight:
			selectRow(st, rows[0])
		}
		return ActionNone
	}

	switch key {
	case KeyDown:
		if cur+1 < len(rows) {
			selectRow(st, rows[cur+1])
		}
	case KeyUp:
		if cur > 0 {
			selectRow(st, rows[cur-1])
		}
	case KeyHome:
		selectRow(st, rows[0])
	case KeyEnd:
		selectRow(st, rows[len(rows)-1])
	case KeyRight:
		row := rows[cur]
		if row.Expandable() && !row.Expanded {
			st.Expand(row.ID)
			return ActionNone
		}
		if cur+1 < len(rows) && rows[cur+1].ParentID == row.ID {
			selectRow(st, rows[cur+1])
		}
	case KeyLeft:
		row := rows[cur]
		if row.Type.Container() && row.Expanded {
			st.Collapse(row.ID)
			return ActionNone
		}
		if p := parentIndex(rows, cur); p >= 0 {
			selectRow(st, rows[p])
		}
	case KeyEnter:
		return ActionEdit
	case KeyDelete:
		return ActionDelete
	}
	return ActionNone
}

func selectRow(st *State, r Row) {
	st.Select(r.ID, r.Type)
}

func selectedIndex(rows []Row, st *State) int {
	id, typ, ok := st.Selection()
	if !ok {
		return -1
	}
	for i, r := range rows {
		if r.ID == id && r.Type == typ {
			return i
		}
	}
	return -1
}

func parentIndex(rows []Row, cur int) int {
	pid := rows[cur].ParentID
	if pid == "" {
		return -1
	}
	// The parent is the nearest earlier row with that id at a shallower
	// depth; scanning backwards keeps duplicate task rows unambiguous.
	for i := cur - 1; i >= 0; i-- {
		if rows[i].ID == pid && rows[i].Depth < rows[cur].Depth {
			return i
		}
	}
	return -1
}
