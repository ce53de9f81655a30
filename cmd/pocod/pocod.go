package main

import (
	"math/rand"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/libreassistant/poco/internal/pocod"
)

func main() {
	rand.New(rand.NewSource(time.Now().UTC().UnixNano()))

	pocod.NewApp("pocod").Run()
}
