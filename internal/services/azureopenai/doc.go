// Package azureopenai implements llm.Completer on top of the official
// openai-go SDK configured for an Azure OpenAI resource: the deployment name
// is sent as the model and the SDK rewrites requests onto the
// /openai/deployments/{deployment} path with the configured api-version.
package azureopenai
