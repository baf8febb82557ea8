// Package schema defines the closed node model a caller uses to describe
// an expected structured result.
//
// A schema is a tree of Node values built with the package builders
// (String, Int, Object, Array, Union, ...) or decoded from a JSON
// descriptor with Decode. Modifier wrappers (Optional, Nullable, Default,
// Catch, Readonly, Brand, Effects, Pipe) nest around an inner node and
// are peeled by the translator.
package schema
