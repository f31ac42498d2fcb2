// Package crawler drives the Gemini crawl: it claims due URLs from the
// persistent frontier, runs each through the policy, fetch, parse and store
// pipeline under bounded concurrency, and feeds discovered links back into
// the frontier.
package crawler
