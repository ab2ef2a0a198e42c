// Package navigation provides reusable ports.Navigator implementations.
package navigation
