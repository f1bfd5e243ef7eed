package providers

import "strings"

// inaccessibleMarkers are matched against the lower-cased provider message.
var inaccessibleMarkers = []string{
	"can't be accessed",
	"can’t be accessed",
	"cannot be accessed",
}

// InaccessibleMessage is the message adapters use when they detect an
// inaccessible profile themselves.
const InaccessibleMessage = "Profile can't be accessed"

// SemanticStatus interprets a provider body that arrived with HTTP 200.
type SemanticStatus struct {
	Failed       bool
	Message      string
	Inaccessible bool
}

// Semantic inspects payload for an embedded {"success": false, "message": ...}
// failure. Only a boolean false counts as a failure.
func Semantic(payload Payload) SemanticStatus {
	if payload == nil {
		return SemanticStatus{}
	}
	ok, isBool := payload["success"].(bool)
	if !isBool || ok {
		return SemanticStatus{}
	}

	msg, _ := payload["message"].(string)
	st := SemanticStatus{Failed: true, Message: msg}
	lower := strings.ToLower(msg)
	for _, marker := range inaccessibleMarkers {
		if strings.Contains(lower, marker) {
			st.Inaccessible = true
			break
		}
	}
	return st
}

// InaccessiblePayload builds the semantic failure body for an inaccessible profile.
func InaccessiblePayload() Payload {
	return Payload{"success": false, "message": InaccessibleMessage}
}
