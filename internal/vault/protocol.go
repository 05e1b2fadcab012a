package vault

// Wire types for the vault's private API. Every request shares the same
// envelope; the operation parameters sit under the account's service ID key
// inside "parameter". Results come back double-wrapped: the outer payload
// carries a base64 "text" field whose decoded bytes are the operation's JSON
// document.

type requestEnvelope struct {
	Header    requestHeader             `json:"header"`
	Parameter map[string]opParams       `json:"parameter"`
	Payload   *requestPayload           `json:"payload,omitempty"`
}

type requestHeader struct {
	AppID string `json:"app_id"`
	// Status 3 marks a complete, single-shot audio upload.
	Status int `json:"status"`
}

type opParams struct {
	Func        string `json:"func"`
	GroupID     string `json:"groupId"`
	FeatureID   string `json:"featureId,omitempty"`
	FeatureInfo string `json:"featureInfo,omitempty"`
	TopK        int    `json:"topK,omitempty"`
	GroupName   string `json:"groupName,omitempty"`
	GroupInfo   string `json:"groupInfo,omitempty"`
}

type requestPayload struct {
	Resource audioResource `json:"resource"`
}

type audioResource struct {
	Audio string `json:"audio"`
}

type responseEnvelope struct {
	Header  responseHeader  `json:"header"`
	Payload responsePayload `json:"payload"`
}

type responseHeader struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Sid     string `json:"sid"`
}

type responsePayload struct {
	CreateFeatureRes *encodedResult `json:"createFeatureRes"`
	SearchFeaRes     *encodedResult `json:"searchFeaRes"`
	DeleteFeatureRes *encodedResult `json:"deleteFeatureRes"`
	CreateGroupRes   *encodedResult `json:"createGroupRes"`
}

type encodedResult struct {
	Text string `json:"text"`
}

// CreateFeatureResult is the decoded inner document of a createFeature call.
type CreateFeatureResult struct {
	FeatureID string `json:"featureId"`
}

// Candidate is one scored match from a 1:N search.
type Candidate struct {
	FeatureID   string  `json:"featureId"`
	Score       float64 `json:"score"`
	FeatureInfo string  `json:"featureInfo"`
}

// SearchResult is the decoded inner document of a searchFea call.
type SearchResult struct {
	ScoreList []Candidate `json:"scoreList"`
}

// DeleteFeatureResult is the decoded inner document of a deleteFeature call.
type DeleteFeatureResult struct {
	Msg string `json:"msg"`
}

// CreateGroupResult is the decoded inner document of a createGroup call.
type CreateGroupResult struct {
	GroupID   string `json:"groupId"`
	GroupName string `json:"groupName"`
	GroupInfo string `json:"groupInfo"`
}
