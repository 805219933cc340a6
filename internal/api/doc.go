// package api is the authenticated request client for the media platform API.
//
// Every request carries the stored bearer token. A 401 clears the session before the
// error is returned; other failures are classified as [KindRequestFailed] or [KindNetworkFailure].
package api
