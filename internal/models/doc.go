// Package models defines the records mediadesk exchanges with the media platform API and caches locally.
//
// The package contains two categories of types:
//
// 1. Identity: the authenticated account and session payloads
//   - [User] : Profile snapshot cached by the session store
//   - [UserPatch] : Partial profile edit merged into the cached snapshot
//   - [LoginResult] : Login response carrying the user and token pair
//   - [Country], [Language] : Localization preferences persisted with the session
//
// 2. Content: records managed through the dashboard
//   - [Music], [Video] : Uploaded media with their upload forms [MusicUpload] and [VideoUpload]
//   - [Livestream] : Live or scheduled streams created from [LivestreamDraft]
//   - [Donation] : Donations between users
//
// Types carry JSON tags matching the upstream API, so they decode straight from response bodies.
package models
