// Package bedrock adapts the Amazon Bedrock asynchronous APIs to the
// mediajob engine capabilities.
//
// DataAutomation drives video analysis through Bedrock Data Automation
// projects; NovaReel drives text-to-video generation through the
// bedrock-runtime StartAsyncInvoke API. Each adapter depends on a narrow
// client interface so tests can substitute fakes for the SDK clients.
package bedrock
