// Command wbsim runs a Wang-Buzsaki neuron under a simulated real-time
// scheduler.
package main

import "github.com/sarchlab/wbneuron/cmd/wbsim/cmd"

func main() {
	cmd.Execute()
}
