// Package analyzer extracts static ES-module imports from sketch source text.
//
// Source arrives from the editor on every run trigger and is frequently
// mid-edit, so the analyzer never requires parseable JavaScript: it strips
// comments and pattern-matches the four static import shapes instead of
// building a syntax tree. Absence of a match is simply an empty result.
//
// Recognized shapes, in scan priority order:
//   - namespace:   import * as THREE from 'three'
//   - named:       import { OrbitControls } from 'three/addons/controls/OrbitControls.js'
//   - default:     import GUI from 'lil-gui'
//   - side-effect: import 'stats.js'
//
// Each match records the specifier, the binding names it introduces, and,
// for absolute URL specifiers, the version embedded in an @version path
// segment. Duplicate (specifier, shape) pairs collapse to one reference;
// the same specifier imported under different shapes stays distinct.
//
// Example Usage:
//
//	refs := analyzer.Analyze(source)
//	if len(refs) == 0 {
//		// ship the source as-is, no module map needed
//	}
package analyzer
