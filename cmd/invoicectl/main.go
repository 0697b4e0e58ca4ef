// Command invoicectl runs the invoice pipeline stages from the command line.
package main

func main() {
	Execute()
}
