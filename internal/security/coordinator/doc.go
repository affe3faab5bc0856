// Package coordinator is the public façade of the security engine.
//
// A Coordinator owns the event log, the policy store, the isolation
// manager and the threat monitor. Callers construct one with New, call
// Start to launch the background sweep and Close on shutdown. Renderer
// hooks (InterceptNavigation, InterceptDownload, CheckFormInput,
// InspectContent) classify input, record findings and return a decision;
// the plain queries (CheckURLSafety, AnalyzeDownload, PerformDeepScan)
// never record anything.
package coordinator
