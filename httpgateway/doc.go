// Package httpgateway implements the authflow backend gateway over the
// NimbusPay REST API. It translates non-success responses into
// [authflow.BackendRejection] values carrying the backend's messages
// verbatim, and transport failures into [authflow.NetworkError]. It never
// retries on its own.
package httpgateway
