package models

// MethodWeights holds a user's ranked delivery-method priorities. Higher
// weight wins when resolving method "any"; ties fall back to the fixed order
// signal > email > ntfy.
type MethodWeights struct {
	Signal int `json:"signal"`
	Email  int `json:"email"`
	Ntfy   int `json:"ntfy"`
}

// UpdatePreferencesRequest is a partial update to a user's method weights.
type UpdatePreferencesRequest struct {
	Signal *int `json:"signal,omitempty"`
	Email  *int `json:"email,omitempty"`
	Ntfy   *int `json:"ntfy,omitempty"`
}

// PreferencesResponse wraps stored weights with a flag telling the caller
// whether they are the lazily applied defaults.
type PreferencesResponse struct {
	Username  string        `json:"username"`
	Weights   MethodWeights `json:"weights"`
	IsDefault bool          `json:"is_default"`
}
