package game

import "fmt"

const (
	winterizeTitle = "It's gonna be a cold one"
	winterizeBody  = "Your first big call as Goobernor this year: the energy committee wants to know " +
		"whether the power plants should get ready for the winter storm rolling in. Experts say it " +
		"could dip below freezing. Your donors say never trust experts, and that they will give a lot " +
		"more to the reelection fund if nobody makes them winterize anything."

	skipOption      = "Prepare? Nah. Money is for politicians, not power plants."
	winterizeOption = "Better safe than sorry. Winterize the power plants."

	skipOutcomeTitle  = "Money money money"
	skipOutcomeBody   = "The plant owners wire over a cool million to thank you for the total lack of regulation. In Tegzit a shortage lets them charge a fortune for power, and they love sharing with whoever lets the shortage happen."
	skipOutcomeOption = "Great. In Tegzit, donations are not bribes."

	winterizeOutcomeTitle  = "Tsk tsk"
	winterizeOutcomeBody   = "\"I thought Tegzit was friendly to business,\" grumbles your buddy who owns a power plant. Raising money for the reelection campaign just got harder."
	winterizeOutcomeOption = "Oh."

	resignOption = "Ok."

	welcomeBackTitle  = "Back in the mansion"
	welcomeBackOption = "Let's go."
)

func resignTitle(outgoing string) string {
	return fmt.Sprintf("Goobernor %s Resigns", outgoing)
}

func resignBody(outgoing, incoming string) string {
	return fmt.Sprintf("The Goobernor of Tegzit, %s, has resigned in disgrace. Lootenant Goobernor %s steps into the empty seat.",
		outgoing, incoming)
}

func welcomeBackBody(governor, when string) string {
	return fmt.Sprintf("Goobernor %s picks up right where things left off: %s.", governor, when)
}
