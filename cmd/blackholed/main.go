// blackholed cuts chosen applications off the network by routing their
// traffic into an interface that never forwards it.
package main

func main() {
	Execute()
}
