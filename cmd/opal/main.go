package main

import (
	"flag"
	"log"
	"time"

	"github.com/orbitforge/opal"
)

const defaultScenario = "~~unset~~"

var scenario string

func init() {
	flag.StringVar(&scenario, "scenario", defaultScenario, "propagation scenario TOML file")
}

func main() {
	flag.Parse()
	if scenario == defaultScenario {
		log.Fatal("no scenario provided")
	}
	scn, err := opal.LoadScenario(scenario)
	if err != nil {
		log.Fatalf("%s: %s", scenario, err)
	}
	log.Printf("[info] scenario: %s", scn.Name)
	log.Printf("[info] vehicle: %s", scn.Vehicle)
	log.Printf("[info] initial state: %s", scn.InitialOrbit)

	session, err := scn.NewSession()
	if err != nil {
		log.Fatalf("session: %s", err)
	}
	start := time.Now()
	result, err := session.Run()
	if err != nil {
		log.Fatalf("propagation failed after %d samples: %s", len(result.Samples), err)
	}
	final := result.Final()
	log.Printf("[info] %s in %s (%d samples)", result.Status, time.Since(start), len(result.Samples))
	log.Printf("[info] final state (%s): R=%+v km\tV=%+v km/s", final.DT.UTC(), final.R, final.V)
}
