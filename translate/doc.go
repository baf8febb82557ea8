// Package translate converts schema nodes into the target intermediate
// representation (classes, enums, literal-union aliases) and renders it
// as schema-description source text.
//
// Translation is a recursive descent over the closed node set: modifier
// wrappers are peeled under a fixed budget, objects declare Pascal-case
// classes with collision-suffixed names, enums become named enumerations
// only when every value is identifier-safe, and unions join their
// options without discriminator inference. Rendering is deterministic
// for a fixed context, which makes the downstream build-cache key stable.
package translate
