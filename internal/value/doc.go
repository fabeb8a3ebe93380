// Package value provides the comparable value domain of the predicate layer.
//
// Values are a closed set of tagged variants behind the sealed Value
// interface. Comparisons never rely on implicit coercion: Convert brings a
// reference value and a bound value into a common domain (or fails with a
// TYPE_MISMATCH error), and Compare returns a signed ordering.
//
// Key design constraints:
//   - Null is a first-class variant; a nil Value is treated as Null.
//   - Enum values compare by symbolic name; Canonical normalizes them to String.
//   - Strings are NFC normalized before comparison and encoding.
//   - Int/Float comparisons are exact: int64 values are never widened to
//     float64 before comparing.
package value
