package appscan

// Wire shapes of the v4 REST API. Only the fields the CLI reads are declared.

type apiKeyLoginRequest struct {
	KeyID      string `json:"KeyId"`
	KeySecret  string `json:"KeySecret"`
	ClientType string `json:"ClientType,omitempty"`
}

type apiKeyLoginResponse struct {
	Token  string `json:"Token"`
	Expire string `json:"Expire"`
}

type fileUploadResponse struct {
	FileID string `json:"FileId"`
}

type dastScanRequest struct {
	StartingURL            string `json:"StartingUrl"`
	ScanType               string `json:"ScanType"`
	TestOptimizationLevel  string `json:"TestOptimizationLevel"`
	LoginType              string `json:"LoginType,omitempty"`
	LoginUser              string `json:"LoginUser,omitempty"`
	LoginPassword          string `json:"LoginPassword,omitempty"`
	TrafficFileID          string `json:"LoginSequenceFileId,omitempty"`
	ScanFileID             string `json:"ScanOrTemplateFileId,omitempty"`
	PresenceID             string `json:"PresenceId,omitempty"`
	AppID                  string `json:"AppId"`
	Name                   string `json:"ScanName"`
	EnableMailNotification bool   `json:"EnableMailNotification"`
	FullyAutomatic         bool   `json:"FullyAutomatic"`
	ClientType             string `json:"ClientType,omitempty"`
	ClientIdentity         string `json:"ClientIdentity,omitempty"`
}

type idResponse struct {
	ID string `json:"Id"`
}

type scanResponse struct {
	ID                    string `json:"Id"`
	Name                  string `json:"Name"`
	AppName               string `json:"AppName"`
	CreatedAt             string `json:"CreatedAt"`
	TestOptimizationLevel string `json:"TestOptimizationLevel"`
	CreatedBy             struct {
		UserName  string `json:"UserName"`
		FirstName string `json:"FirstName"`
		LastName  string `json:"LastName"`
		Email     string `json:"Email"`
	} `json:"CreatedBy"`
	LatestExecution struct {
		Status               string `json:"Status"`
		ExecutionDurationSec int    `json:"ExecutionDurationSec"`
		ExecutionProgress    string `json:"ExecutionProgress"`
	} `json:"LatestExecution"`
}

type severityGroup struct {
	Severity string `json:"Severity"`
	Count    int    `json:"Count"`
}

type issueGroupsResponse struct {
	Items []severityGroup `json:"Items"`
}

type reportRequest struct {
	Configuration reportConfiguration `json:"Configuration"`
}

type reportConfiguration struct {
	Summary        bool   `json:"Summary"`
	Details        bool   `json:"Details"`
	Discussion     bool   `json:"Discussion"`
	Overview       bool   `json:"Overview"`
	History        bool   `json:"History"`
	ReportFileType string `json:"ReportFileType"`
	Title          string `json:"Title,omitempty"`
}

type reportStatusResponse struct {
	ID     string `json:"Id"`
	Status string `json:"Status"`
}

type presenceResponse struct {
	ID     string `json:"Id"`
	Name   string `json:"PresenceName"`
	Status string `json:"Status"`
}

type presenceListResponse struct {
	Items []presenceResponse `json:"Items"`
}

type appResponse struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

type appListResponse struct {
	Items []appResponse `json:"Items"`
}

type urlValidationRequest struct {
	URL string `json:"Url"`
}

type urlValidationResponse struct {
	IsValid bool `json:"IsValid"`
}
