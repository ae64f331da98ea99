// Package html extracts readable text from saved web pages, such as
// patient-education articles exported from a browser. Scripts, styles and
// the document head are dropped; block elements become paragraph breaks.
package html
