// Package integrationtest runs migrations end to end against real disk images on a Windows host.
package integrationtest
