// Package plugin defines the contract between the build engine and rule
// implementations.
//
// A rule receives a BuildContext (or an ActionContext for action rules)
// holding its bound arguments and the cache state of the invocation, and
// answers with a Return. A Return is either final (a value, a failure, or
// "done" for actions) or asks the engine for more work before the rule can
// continue: evaluating another rule, describing classes, or running a step
// under a directory lock. The engine treats every variant as a step of the
// same continuation protocol it uses for script evaluation.
package plugin
