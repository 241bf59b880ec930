// Command biblestudy is the command-line entry point for the Bible study
// backend.
//
// "biblestudy serve" runs the HTTP server. The remaining commands open the
// same state database and dataset directory directly: reading chapters
// through the tiered cache, requesting summaries, commentary and insights,
// chatting about a chapter, inspecting study memory, downloading offline
// datasets and checking readiness with "doctor".
package main
