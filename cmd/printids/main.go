// Package main provides a diagnostic that prints the real and effective
// user and group ids of the invoking process. Useful for checking that the
// broker binary is installed setuid root: invoked by an unprivileged user,
// a correct installation shows a nonzero real uid and effective uid 0.
package main

import (
	"fmt"
	"syscall"
)

func main() {
	fmt.Printf("real: %d effective: %d\n", syscall.Getuid(), syscall.Geteuid())
	fmt.Printf("real group: %d effective group: %d\n", syscall.Getgid(), syscall.Getegid())
}
