// Package registry holds exercise content for the grading backend.
//
// Exercises are immutable once registered and are keyed by
// (framework, pattern). Registration rejects unknown frameworks and
// duplicate keys, and assigns assertion indices in declaration order.
//
// Components:
//   - Manager: in-memory lookup, listing and stats
//   - Seeder: walks a content directory (fastwalk) and filters it with a
//     doublestar glob; files are YAML, TOML or JSON
//   - Remote: fetches a JSON bundle over HTTP (resty)
//
// Content format (YAML shown):
//
//	framework: vanilla
//	pattern: todo
//	title: Todo list
//	fixture: <div id="app"></div>
//	skeleton_file: todo.skeleton.js
//	assertions:
//	  - name: renders a list
//	    predicate: "document.querySelector('ul') !== null"
//
// A file may instead carry an "exercises" list whose entries inherit the
// top-level framework and fixture.
package registry
