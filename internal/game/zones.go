package game

import (
	"slices"

	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/game/counters"
	"github.com/magefree/mage-engine-go/internal/game/effects"
	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
	"github.com/magefree/mage-engine-go/internal/game/values"
)

// registration records the effects a static ability registered while its
// object was in one zone.
type registration struct {
	zone         object.Zone
	abilityID    string
	continuous   []string
	replacements []string
}

// CreateCard creates a card owned by ownerID from spec and puts it into zone
// without a zone change event. Permanents created this way are treated as
// having started the game on the battlefield.
func (g *Game) CreateCard(ownerID string, spec CardSpec, zone object.Zone) *Card {
	c := g.newCard(ownerID, spec)
	g.register(c.id, ownerID, c.abilities, object.ZoneAll, c.zoneTimestamp)
	g.attach(c, zone)
	c.summoningSick = false
	return c
}

func (g *Game) newCard(ownerID string, spec CardSpec) *Card {
	c := &Card{
		id:            g.nextID("card"),
		ownerID:       ownerID,
		controllerID:  ownerID,
		zone:          object.ZoneNone,
		base:          spec.Characteristics.Clone(),
		counters:      counters.NewCounters(),
		zoneTimestamp: g.nextTimestamp(),
	}
	c.abilities = g.bindAbilities(c.id, spec.Abilities)
	if !c.base.HasType(object.TypeLand) && c.spellAbility() == nil {
		sa := NewSpellAbility("")
		sa.bind(g.nextID("ability"), c.id)
		c.abilities = append(c.abilities, sa)
	}
	// Printed abilities are part of the characteristics so that layer 6
	// effects can add and remove them.
	for _, a := range c.abilities {
		if a.Kind() != AbilitySpell && a.Text() != "" && !c.base.HasAbility(a.Text()) {
			c.base.AddAbility(a.Text())
		}
	}
	for _, t := range spec.Abilities {
		if _, known := g.templates[t.Text()]; !known && t.Kind() != AbilitySpell && t.Text() != "" {
			g.templates[t.Text()] = t
		}
	}
	g.cards[c.id] = c
	return c
}

func (g *Game) bindAbilities(sourceID string, templates []Ability) []Ability {
	out := make([]Ability, 0, len(templates))
	for _, t := range templates {
		a := t.Copy()
		a.bind(g.nextID("ability"), sourceID)
		out = append(out, a)
	}
	return out
}

// moveCard moves a card to another zone. The move is an event that
// replacement effects can modify or prevent; it reports whether the card moved.
func (g *Game) moveCard(c *Card, to object.Zone, sourceID string) bool {
	return g.moveCardUnder(c, to, sourceID, "")
}

// moveCardUnder is moveCard for a card that arrives on the stack or the
// battlefield under controllerID's control. The new object has that
// controller before its static abilities register and before the zone
// change is seen by triggers.
func (g *Game) moveCardUnder(c *Card, to object.Zone, sourceID, controllerID string) bool {
	from := c.zone
	if from == to {
		return false
	}
	before := c.snapshot()
	if from != object.ZoneNone {
		before = g.evaluate(c)
	}
	ev, prevented := g.replace(rules.NewZoneChangeEvent(before, sourceID, before.ControllerID, from, to))
	if prevented || ev.ToZone == from {
		return false
	}
	to = ev.ToZone
	g.detach(c, before)
	if controllerID != "" && (to == object.ZoneBattlefield || to == object.ZoneStack) {
		c.controllerID = controllerID
	}
	g.attach(c, to)
	if to == object.ZoneBattlefield {
		ev.Target = g.evaluate(c)
	}
	g.logger.Debug("zone change",
		zap.String("card_id", c.id),
		zap.String("name", before.Name),
		zap.String("from", from.String()),
		zap.String("to", to.String()))
	g.fire(ev)
	return true
}

// detach takes a card out of its zone. The object it was stops existing:
// effects bound to it end and its last known information is kept.
func (g *Game) detach(c *Card, before *object.Snapshot) {
	from := c.zone
	switch from {
	case object.ZoneNone:
		return
	case object.ZoneBattlefield:
		g.battlefield, _ = removeID(g.battlefield, c.id)
	case object.ZoneStack:
		g.stack.Remove(c.id)
	case object.ZoneCommand:
	default:
		p := g.players[c.ownerID]
		if list := p.zoneList(from); list != nil {
			*list, _ = removeID(*list, c.id)
		}
	}
	g.lastKnown[c.id] = before.Clone()
	g.unregister(c.id, from)
	g.dropAcquired(c)
	g.layers.RemoveSourceBound(c.id, from)
	g.replacements.RemoveSourceBound(c.id, from)
	g.layers.ForgetObject(c.id)
	if from == object.ZoneBattlefield {
		c.resetPermanentState()
		if g.inBatch {
			g.leftInBatch = append(g.leftInBatch, c.id)
		}
	}
	c.controllerID = c.ownerID
	c.zone = object.ZoneNone
}

// attach puts a detached card into a zone as a new object.
func (g *Game) attach(c *Card, to object.Zone) {
	c.zone = to
	c.zoneTimestamp = g.nextTimestamp()
	switch to {
	case object.ZoneNone, object.ZoneStack, object.ZoneCommand:
		// The caller pushes the spell.
	case object.ZoneBattlefield:
		g.battlefield = append(g.battlefield, c.id)
		c.summoningSick = true
		if c.base.HasType(object.TypePlaneswalker) && !c.faceDown {
			c.counters.Add(string(counters.Loyalty), c.base.Loyalty)
		}
	case object.ZoneLibrary:
		p := g.players[c.ownerID]
		p.library = append([]string{c.id}, p.library...)
	default:
		p := g.players[c.ownerID]
		if list := p.zoneList(to); list != nil {
			*list = append(*list, c.id)
		}
	}
	if to == object.ZoneBattlefield && c.faceDown {
		return
	}
	g.register(c.id, c.controllerID, c.abilities, to, c.zoneTimestamp)
}

// removeObject makes an object cease to exist, as a token does when it is
// anywhere but the battlefield.
func (g *Game) removeObject(c *Card) {
	if c.zone != object.ZoneNone {
		g.detach(c, g.evaluate(c))
	}
	g.unregister(c.id, object.ZoneAll)
	delete(g.cards, c.id)
}

// batch runs fn as one simultaneous event: permanents leaving the
// battlefield during fn see each other's leave-the-battlefield abilities.
func (g *Game) batch(fn func()) {
	if g.inBatch {
		fn()
		return
	}
	g.inBatch = true
	g.leftInBatch = nil
	fn()
	g.inBatch = false
	g.leftInBatch = nil
}

// register adds the effects of the static abilities functioning in zone.
// Each effect only applies while its object still has the ability.
func (g *Game) register(objectID, controllerID string, abilities []Ability, zone object.Zone, ts int64) {
	src := values.Source{ID: objectID, ControllerID: controllerID}
	for _, a := range abilities {
		st, ok := a.(*StaticAbility)
		if !ok || st.zone != zone {
			continue
		}
		reg := registration{zone: zone, abilityID: st.ID()}
		for _, f := range st.continuous {
			if e := f(src); e != nil {
				effects.FromAbility(e, st.Text())
				reg.continuous = append(reg.continuous, g.layers.AddEffect(e, ts))
			}
		}
		for _, f := range st.replacements {
			if e := f(src); e != nil {
				effects.FromAbility(e, st.Text())
				reg.replacements = append(reg.replacements, g.replacements.AddEffect(e, ts))
			}
		}
		for _, f := range st.rules {
			if e := f(src); e != nil {
				effects.FromAbility(e, st.Text())
				reg.replacements = append(reg.replacements, g.replacements.AddRuleModifying(e, ts))
			}
		}
		if len(reg.continuous)+len(reg.replacements) > 0 {
			g.registrations[objectID] = append(g.registrations[objectID], reg)
		}
	}
}

func (g *Game) unregister(objectID string, zone object.Zone) {
	g.unregisterWhere(objectID, func(reg registration) bool { return reg.zone == zone })
}

func (g *Game) unregisterAbility(objectID, abilityID string) {
	g.unregisterWhere(objectID, func(reg registration) bool { return reg.abilityID == abilityID })
}

func (g *Game) unregisterWhere(objectID string, match func(registration) bool) {
	regs := g.registrations[objectID]
	kept := regs[:0]
	for _, reg := range regs {
		if !match(reg) {
			kept = append(kept, reg)
			continue
		}
		for _, id := range reg.continuous {
			g.layers.RemoveEffect(id)
		}
		for _, id := range reg.replacements {
			g.replacements.RemoveEffect(id)
		}
	}
	if len(kept) == 0 {
		delete(g.registrations, objectID)
		return
	}
	g.registrations[objectID] = kept
}

func (g *Game) tap(c *Card) {
	if c.tapped {
		return
	}
	c.tapped = true
	g.fire(rules.NewEvent(rules.EventTapped, c.id, "", c.controllerID))
}

func (g *Game) untap(c *Card) {
	if !c.tapped {
		return
	}
	c.tapped = false
	g.fire(rules.NewEvent(rules.EventUntapped, c.id, "", c.controllerID))
}

// shuffleLibrary shuffles with the logged random source so replays shuffle alike.
func (g *Game) shuffleLibrary(playerID string) {
	p := g.players[playerID]
	for i := len(p.library) - 1; i > 0; i-- {
		j := g.randomInt(i + 1)
		p.library[i], p.library[j] = p.library[j], p.library[i]
	}
}

// drawOpeningHand moves cards to the hand without draw events. A short
// library doesn't make the player lose.
func (g *Game) drawOpeningHand(playerID string, n int) {
	p := g.players[playerID]
	for range n {
		if len(p.library) == 0 {
			return
		}
		c := g.cards[p.library[0]]
		g.detach(c, c.snapshot())
		g.attach(c, object.ZoneHand)
	}
}

func (g *Game) drawCards(playerID string, n int, sourceID string) {
	for range n {
		g.drawCard(playerID, sourceID)
	}
}

// drawCard draws one card. Drawing from an empty library is remembered for
// the next state-based action check (704.5b).
func (g *Game) drawCard(playerID, sourceID string) bool {
	p, ok := g.players[playerID]
	if !ok || !p.inGame() {
		return false
	}
	if _, prevented := g.replace(rules.NewEvent(rules.EventDrawCard, playerID, sourceID, playerID)); prevented {
		return false
	}
	if len(p.library) == 0 {
		p.drewFromEmpty = true
		return false
	}
	c := g.cards[p.library[0]]
	if !g.moveCard(c, object.ZoneHand, sourceID) {
		return false
	}
	g.fire(rules.NewEvent(rules.EventDrewCard, c.id, sourceID, playerID))
	return true
}

func (g *Game) gainLife(playerID string, n int, sourceID string) {
	p, ok := g.players[playerID]
	if !ok || n <= 0 {
		return
	}
	ev, prevented := g.replace(rules.NewAmountEvent(rules.EventGainLife, playerID, sourceID, playerID, n))
	if prevented || ev.Amount <= 0 {
		return
	}
	p.life += ev.Amount
	g.fire(rules.NewAmountEvent(rules.EventGainedLife, playerID, sourceID, playerID, ev.Amount))
}

func (g *Game) loseLife(playerID string, n int, sourceID string) {
	p, ok := g.players[playerID]
	if !ok || n <= 0 {
		return
	}
	ev, prevented := g.replace(rules.NewAmountEvent(rules.EventLoseLife, playerID, sourceID, playerID, n))
	if prevented || ev.Amount <= 0 {
		return
	}
	p.life -= ev.Amount
	g.fire(rules.NewAmountEvent(rules.EventLostLife, playerID, sourceID, playerID, ev.Amount))
}

// dealDamage deals damage to a player or a permanent. Damage to a
// planeswalker removes loyalty counters; damage from a source with lifelink
// also makes its controller gain that much life.
func (g *Game) dealDamage(targetID string, n int, sourceID string) {
	if n <= 0 {
		return
	}
	src, _ := g.Object(sourceID)
	if src == nil {
		src, _ = g.LastKnown(sourceID)
	}
	controller := ""
	if src != nil {
		controller = src.ControllerID
	}

	dealt := 0
	if p, ok := g.players[targetID]; ok {
		if !p.inGame() {
			return
		}
		ev, prevented := g.replace(rules.NewAmountEvent(rules.EventDamagePlayer, targetID, sourceID, controller, n))
		if prevented || ev.Amount <= 0 {
			return
		}
		dealt = ev.Amount
		p.life -= dealt
		g.fire(rules.NewAmountEvent(rules.EventDamagedPlayer, targetID, sourceID, controller, dealt))
	} else {
		c, ok := g.cards[targetID]
		if !ok || c.zone != object.ZoneBattlefield {
			return
		}
		ev, prevented := g.replace(rules.NewAmountEvent(rules.EventDamagePermanent, targetID, sourceID, controller, n))
		if prevented || ev.Amount <= 0 {
			return
		}
		dealt = ev.Amount
		s := g.evaluate(c)
		if s.HasType(object.TypePlaneswalker) {
			removed := min(dealt, c.counters.Count(string(counters.Loyalty)))
			c.counters.Remove(string(counters.Loyalty), removed)
		}
		if s.IsCreature() {
			c.damage += dealt
		}
		g.fire(rules.NewAmountEvent(rules.EventDamagedPermanent, targetID, sourceID, controller, dealt))
	}
	if src != nil && src.HasAbility("Lifelink") && controller != "" {
		g.gainLife(controller, dealt, sourceID)
	}
}

// destroy destroys a permanent. Indestructible permanents and prevented
// destruction leave it where it is.
func (g *Game) destroy(id, sourceID string) bool {
	c, ok := g.cards[id]
	if !ok || c.zone != object.ZoneBattlefield {
		return false
	}
	if s := g.evaluate(c); s.HasAbility("Indestructible") {
		return false
	}
	controller := c.controllerID
	if _, prevented := g.replace(rules.NewEvent(rules.EventDestroyPermanent, id, sourceID, controller)); prevented {
		return false
	}
	if !g.moveCard(c, object.ZoneGraveyard, sourceID) {
		return false
	}
	g.fire(rules.NewEvent(rules.EventDestroyedPermanent, id, sourceID, controller))
	return true
}

func (g *Game) sacrifice(c *Card, sourceID string) {
	if c == nil || c.zone != object.ZoneBattlefield {
		return
	}
	controller := c.controllerID
	if g.moveCard(c, object.ZoneGraveyard, sourceID) {
		g.fire(rules.NewEvent(rules.EventSacrificedPermanent, c.id, sourceID, controller))
	}
}

// createToken creates a token under controllerID's control on the battlefield.
func (g *Game) createToken(controllerID string, spec CardSpec, sourceID string) *Card {
	c := g.newCard(controllerID, spec)
	c.token = true
	g.register(c.id, controllerID, c.abilities, object.ZoneAll, c.zoneTimestamp)
	if !g.moveCard(c, object.ZoneBattlefield, sourceID) {
		g.removeObject(c)
		return nil
	}
	g.fire(rules.NewEvent(rules.EventTokenCreated, c.id, sourceID, controllerID))
	return c
}

// createEmblem puts an emblem into the command zone. Its static abilities
// start functioning at once.
func (g *Game) createEmblem(controllerID, name string, abilities []Ability) *Emblem {
	e := &Emblem{id: g.nextID("emblem"), name: name, controllerID: controllerID, timestamp: g.nextTimestamp()}
	e.abilities = g.bindAbilities(e.id, abilities)
	g.emblems = append(g.emblems, e)
	g.register(e.id, controllerID, e.abilities, object.ZoneCommand, e.timestamp)
	g.status("%s gets an emblem: %s", g.players[controllerID].name, name)
	return e
}

func (g *Game) addCounters(c *Card, name string, n int, sourceID string) {
	if n <= 0 {
		return
	}
	ev := rules.NewAmountEvent(rules.EventAddCounters, c.id, sourceID, c.controllerID, n)
	ev.Data = name
	ev, prevented := g.replace(ev)
	if prevented || ev.Amount <= 0 {
		return
	}
	c.counters.Add(name, ev.Amount)
	added := rules.NewAmountEvent(rules.EventCounterAdded, c.id, sourceID, c.controllerID, ev.Amount)
	added.Data = name
	g.fire(added)
}

func (g *Game) addPoison(playerID string, n int, sourceID string) {
	p, ok := g.players[playerID]
	if !ok || n <= 0 {
		return
	}
	p.poison += n
	ev := rules.NewAmountEvent(rules.EventCounterAdded, playerID, sourceID, playerID, n)
	ev.Data = string(counters.Poison)
	g.fire(ev)
}

// manifest puts the top card of a library onto the battlefield face down as
// a 2/2 creature without abilities.
func (g *Game) manifest(playerID, sourceID string) *Card {
	p, ok := g.players[playerID]
	if !ok || len(p.library) == 0 {
		return nil
	}
	c := g.cards[p.library[0]]
	c.faceDown = true
	if !g.moveCard(c, object.ZoneBattlefield, sourceID) {
		c.faceDown = false
		return nil
	}
	return c
}

// permanentsControlledBy lists the battlefield ids controlled by playerID.
func (g *Game) permanentsControlledBy(playerID string) []string {
	var out []string
	for _, id := range g.battlefield {
		if s, ok := g.Object(id); ok && s.ControllerID == playerID {
			out = append(out, id)
		}
	}
	return slices.Clip(out)
}
