// Package bibliography holds the user-editable metadata drafts that ride
// along with queued uploads.
package bibliography
