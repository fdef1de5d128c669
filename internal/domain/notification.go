package domain

// PermissionState mirrors the browser notification permission model.
type PermissionState string

const (
	PermissionUnsupported PermissionState = "unsupported"
	PermissionDefault     PermissionState = "default"
	PermissionGranted     PermissionState = "granted"
	PermissionDenied      PermissionState = "denied"
)

func (p PermissionState) Valid() bool {
	switch p {
	case PermissionUnsupported, PermissionDefault, PermissionGranted, PermissionDenied:
		return true
	}
	return false
}

// Notification is a point-in-time alert handed to a sink.
type Notification struct {
	Title              string `json:"title"`
	Body               string `json:"body"`
	Tag                string `json:"tag"`
	RequireInteraction bool   `json:"requireInteraction"`
	RouteID            string `json:"routeId,omitempty"`
}
