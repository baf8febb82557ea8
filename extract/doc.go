// Package extract drives structured extraction end to end: it turns a
// schema into compiled parser artifacts through the workspace cache,
// merges the schema hint into the caller's prompt, runs the bounded
// generation loop against a provider, and validates the model's output
// with the compiled parser.
//
// The split is deliberate: Orchestrator owns only the generation loop,
// while Pipeline owns everything around it (translation, compilation,
// caching, history, metrics).
package extract
