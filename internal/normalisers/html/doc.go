// Package html normalises HTML uploads. Scripts, styles and comments are
// dropped, entities decoded, and each block element becomes one line.
package html
