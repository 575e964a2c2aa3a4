package keychain

// setAction is the write Set performs after probing the item.
type setAction int

const (
	// actionAdd: the item does not exist.
	actionAdd setAction = iota + 1
	// actionUpdate: the item exists and its data is readable.
	actionUpdate
	// actionRewrite: the item exists but is gated, so it is deleted and
	// added again with the new access control.
	actionRewrite
	// actionPropagate: the probe failed for any other reason.
	actionPropagate
)

func (a setAction) String() string {
	switch a {
	case actionAdd:
		return "add"
	case actionUpdate:
		return "update"
	case actionRewrite:
		return "rewrite"
	case actionPropagate:
		return "propagate"
	}
	return "unknown"
}

type setPlan struct {
	action setAction
	err    error // probe error, set for actionPropagate
}

// planSet maps the result of the non-interactive probe fetch to a write.
func planSet(probeErr error) setPlan {
	if probeErr == nil {
		return setPlan{action: actionUpdate}
	}
	status, ok := StatusOf(probeErr)
	if !ok {
		return setPlan{action: actionPropagate, err: probeErr}
	}
	switch status {
	case StatusItemNotFound:
		return setPlan{action: actionAdd}
	case StatusInteractionNotAllowed:
		return setPlan{action: actionRewrite}
	}
	return setPlan{action: actionPropagate, err: probeErr}
}
