// Package provider implements the client for the upstream budgeting API.
//
// [Provider] is the boundary the sync engine fetches through: one method per
// entity kind, each returning normalized records ready for the repositories
// layer. [Client] is the HTTP implementation, authenticated with a bearer
// token and rate limited so bulk history fetches stay under the upstream's
// request ceiling. The engine treats every method as "returns records or
// fails"; retry policy lives with the caller, not here.
package provider
