// Package objhash computes the content-addressed identities of rule
// invocations.
//
// A target id is the BLAKE3 digest of the canonical encoding of a
// TargetIDData: where the rule and its caller come from, how the rule is
// implemented, and its arguments sorted by name. Input hashes cover the
// contents of every file and directory reachable from the arguments, and
// together with the target id they form the object id of one build.
package objhash
