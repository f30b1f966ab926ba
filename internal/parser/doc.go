// Package parser turns free text into task requests. The built-in
// KeywordParser is a deliberately naive rule matcher; callers depend on the
// Parser interface so a real intent model can replace it.
package parser
