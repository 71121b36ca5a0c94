package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"xiuxian-server/internal/modules/game/service"
)

// 离线战斗推演工具：给定双方面板直接跑一场战斗，用于数值调参。
func main() {
	aStats := flag.String("a", "200,100,80,20,10", "Side A stats: hp,attack,defense,speed,luck")
	bStats := flag.String("b", "300,60,40,12,5", "Side B stats: hp,attack,defense,speed,luck")
	aElements := flag.String("a-elements", "", "Comma separated elements for side A (metal|wood|earth|water|fire|chaos|wind)")
	bElements := flag.String("b-elements", "", "Comma separated elements for side B")
	aCounter := flag.Bool("a-counter", false, "Side A can trigger elemental counter (heavenly/variant root)")
	seed := flag.Int64("seed", 0, "Random seed (0 = current time)")
	variance := flag.Float64("variance", 0, "Damage variance, e.g. 0.10 (0 = default)")
	maxRounds := flag.Int("max-rounds", 0, "Round cap (0 = default)")
	runs := flag.Int("runs", 1, "Number of simulations to run")
	verbose := flag.Bool("verbose", false, "Print per-round log of the first run")
	flag.Parse()

	sideA, err := parseStats("A", *aStats, *aElements, *aCounter)
	if err != nil {
		log.Fatal(err)
	}
	sideB, err := parseStats("B", *bStats, *bElements, false)
	if err != nil {
		log.Fatal(err)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	if *runs < 1 {
		*runs = 1
	}

	wins := map[string]int{}
	var totalRounds int
	for i := 0; i < *runs; i++ {
		a := *sideA
		b := *sideB
		result := service.Simulate(&a, &b, &service.CombatOptions{
			MaxRounds: *maxRounds,
			Variance:  service.VarianceOf(*variance),
			Roller:    service.NewRoller(*seed + int64(i)),
		})
		wins[result.Outcome]++
		totalRounds += result.Rounds

		if i == 0 && *verbose {
			for _, round := range result.RoundLog {
				events := ""
				if len(round.Events) > 0 {
					events = " [" + strings.Join(round.Events, ",") + "]"
				}
				fmt.Printf("round %2d  A->B %4d  B->A %4d  HP A=%d B=%d%s\n",
					round.Round, round.DamageAToB, round.DamageBToA, round.HPA, round.HPB, events)
			}
			fmt.Println()
		}
	}

	fmt.Printf("power: A=%d B=%d\n", sideA.PowerScore(), sideB.PowerScore())
	fmt.Printf("runs=%d seed=%d avg_rounds=%.1f\n", *runs, *seed, float64(totalRounds)/float64(*runs))
	fmt.Printf("win=%d lose=%d draw=%d\n",
		wins[service.OutcomeWin], wins[service.OutcomeLose], wins[service.OutcomeDraw])
}

func parseStats(side, raw, elements string, canCounter bool) (*service.CombatantStats, error) {
	var hp, attack, defense, speed, luck int
	if _, err := fmt.Sscanf(raw, "%d,%d,%d,%d,%d", &hp, &attack, &defense, &speed, &luck); err != nil {
		return nil, fmt.Errorf("invalid stats for side %s (want hp,attack,defense,speed,luck): %s", side, raw)
	}
	stats := &service.CombatantStats{
		ID:                  side,
		Name:                "Side " + side,
		HP:                  hp,
		MaxHP:               hp,
		Attack:              attack,
		Defense:             defense,
		Speed:               speed,
		Luck:                luck,
		CanElementalCounter: canCounter,
	}
	if elements != "" {
		stats.Elements = strings.Split(elements, ",")
	}
	return stats, nil
}
