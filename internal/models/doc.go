// Package models defines the domain types shared by the backend client, the controller and the local store.
//
//   - [Session] : the backend session obtained by exchanging a Google identity credential
//   - [MainData] : the single per-user record of named string fields, described by [MainDataFields]
//   - [Subcategory] : one job record owned by the signed-in user, identified by a server-assigned [ID]
//
// Nothing in this package talks to the network or the database.
// Every value here is a cache of what the backend last returned.
package models
