package main

import "github.com/Dhia9030/CarRental-sub000/cmd"

func main() {
	cmd.Execute()
}
