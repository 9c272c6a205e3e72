package openapi

import "regexp"

// compilePattern compiles an OpenAPI pattern, tolerating the ECMA-style
// anchors documents commonly carry.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(pattern)
}
