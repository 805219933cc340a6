// Package services wraps the media platform's REST endpoints on top of [api.Client].
//
// # User Service
//
// [UserService] logs in, loads the profile, and manages accounts under /users.
// A successful login is persisted through session.Store.BeginSession. A failed profile
// load logs the user out.
//
// # Media Service
//
// [MediaService] lists and uploads music and videos, schedules livestreams and lists donations.
// Uploads are sent as multipart forms.
//
// # Response Shapes
//
// List endpoints answer either with an envelope ({"users": [...]}) or a bare array, and some
// builds return a single object where an array is expected. [decodeList] accepts all three.
//
// # Error Handling
//
// Transport and HTTP failures surface as *api.Error. Services add typed errors from shared:
//   - [shared.ErrAuthFailed] : login rejected or no token returned
//   - [shared.ErrNotAuthenticated] : profile endpoint returned no user
//   - [shared.ErrUserNotFound] : delete of an unknown user
//   - [shared.ErrMissingArgument] / [shared.ErrInvalidInput] : bad caller input
package services
