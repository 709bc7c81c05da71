package model

// Submission property keys. The orchestrator fills a map with these keys and
// the service adapter translates it into a request body.
const (
	PropTarget                = "Target"
	PropScanType              = "ScanType"
	PropTestOptimizationLevel = "TestOptimizationLevel"
	PropLoginType             = "LoginType"
	PropLoginUser             = "LoginUser"
	PropLoginPassword         = "LoginPassword"
	PropTrafficFile           = "trafficFile"
	PropTrafficFileID         = "TrafficFileId"
	PropScanFile              = "ScanFile"
	PropScanFileID            = "ScanFileId"
	PropPresenceID            = "PresenceId"
	PropAppID                 = "AppId"
	PropScanName              = "ScanName"
	PropEnableMailNotify      = "EnableMailNotification"
	PropFullyAutomatic        = "FullyAutomatic"
	PropServerURL             = "ServerURL"
	PropAcceptInvalidCerts    = "AcceptInvalidCerts"
	PropClientType            = "ClientType"
	PropClientIdentity        = "ClientIdentity"
)

// Client type reported to the service.
const (
	ClientTypeCLI       = "AppScan Cloud CLI"
	ClientTypeCodeBuild = "AWS CodeBuild CLI"
)
