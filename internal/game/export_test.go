package game

import "github.com/magefree/mage-engine-go/internal/game/mana"

// Hooks for package game_test.

func GiveMana(g *Game, playerID string, t mana.ManaType, n int) {
	g.players[playerID].pool.Add(t, n)
}

func SetLife(g *Game, playerID string, life int) {
	g.players[playerID].life = life
}

func InflictDamage(g *Game, targetID string, n int) {
	g.dealDamage(targetID, n, "")
}

func PutCounters(g *Game, cardID, name string, n int) {
	g.addCounters(g.cards[cardID], name, n, "")
}

// Settle runs state-based actions and trigger placement as if a player were
// about to receive priority.
func Settle(g *Game) error {
	_, err := g.settle()
	return g.fail(err)
}

func ManifestTop(g *Game, playerID string) string {
	c := g.manifest(playerID, "")
	if c == nil {
		return ""
	}
	return c.id
}

func DestroyPermanent(g *Game, id string) bool {
	return g.destroy(id, "")
}

// GiveSpell changes the controller of a spell on the stack, as an effect
// that gains control of a spell would.
func GiveSpell(g *Game, id, playerID string) {
	obj, ok := g.stack.Get(id)
	if !ok {
		return
	}
	if so, ok := obj.(*StackObject); ok {
		so.controllerID = playerID
	}
}
