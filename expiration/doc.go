// Package expiration provides policies that decide whether a session deadline has elapsed.
//
// An ExpiryCache consults its Policy on every freshness query. StrictPolicy is the default:
// a session is fresh only while its deadline is strictly after the current time.
package expiration
