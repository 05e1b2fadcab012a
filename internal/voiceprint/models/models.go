// Package models holds the voiceprint domain records and operation results.
package models

import "time"

// Template links a directory user to a feature held by the vault. At most one
// template per user is active at any time; Delete flips Active off, records
// are never physically purged here.
type Template struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"userId"`
	VaultGroupID   string     `json:"vaultGroupId"`
	VaultFeatureID string     `json:"vaultFeatureId"`
	FeatureInfo    string     `json:"featureInfo,omitempty"`
	AudioFileName  string     `json:"audioFileName,omitempty"`
	RegisteredAt   time.Time  `json:"registeredAt"`
	LastMatchedAt  *time.Time `json:"lastMatchedAt,omitempty"`
	MatchCount     int        `json:"matchCount"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Attempt is one append-only audit row. An Identify call that reaches the
// vault writes one row per resolved candidate, or exactly one error row when
// the vault rejects the search.
type Attempt struct {
	ID                   int64     `json:"id"`
	RequestID            string    `json:"requestId"`
	IdentifiedUserID     *int64    `json:"identifiedUserId,omitempty"`
	VaultFeatureID       string    `json:"vaultFeatureId,omitempty"`
	ConfidenceScore      float64   `json:"confidenceScore"`
	AudioFileName        string    `json:"audioFileName,omitempty"`
	VaultSessionID       string    `json:"vaultSessionId,omitempty"`
	VaultResponseCode    int       `json:"vaultResponseCode"`
	VaultResponseMessage string    `json:"vaultResponseMessage,omitempty"`
	ProcessingDurationMS int       `json:"processingDurationMs"`
	ClientIP             string    `json:"clientIp,omitempty"`
	UserAgent            string    `json:"userAgent,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
}

// ClientContext carries the caller metadata recorded with audit rows.
type ClientContext struct {
	IP        string
	UserAgent string
}

// EnrollResult is the structured outcome of a successful enrollment.
type EnrollResult struct {
	FeatureID     string `json:"featureId"`
	UserID        int64  `json:"userId"`
	Username      string `json:"username"`
	AudioFileName string `json:"audioFileName"`
}

// Match is one resolved identification candidate: a vault score joined with
// the locally known owner.
type Match struct {
	UserID          int64   `json:"userId"`
	Username        string  `json:"username"`
	FullName        string  `json:"fullName,omitempty"`
	FeatureID       string  `json:"featureId"`
	ConfidenceScore float64 `json:"confidenceScore"`
	FeatureInfo     string  `json:"featureInfo,omitempty"`
}

// IdentifyResult reports all resolved matches, best first. An empty Matches
// slice is a clean "no match", distinct from a vault-level error.
type IdentifyResult struct {
	RequestID            string  `json:"requestId"`
	Matches              []Match `json:"matches"`
	ProcessingDurationMS int64   `json:"processingDurationMs"`
}

// Statistics is a rollup over templates and the audit log.
type Statistics struct {
	TotalEnrolledUsers   int64 `json:"totalEnrolledUsers"`
	TodayIdentifications int64 `json:"todayIdentifications"`
	TotalIdentifications int64 `json:"totalIdentifications"`
}
