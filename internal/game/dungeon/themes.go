package dungeon

// Theme is one of the fifty enumerated dungeon flavours.
type Theme string

// Themes.
const (
	ThemeAncientTemple      Theme = "ancient_temple"
	ThemeVolcanicFortress   Theme = "volcanic_fortress"
	ThemeCrystalCaverns     Theme = "crystal_caverns"
	ThemeSunkenCity         Theme = "sunken_city"
	ThemeHauntedCrypt       Theme = "haunted_crypt"
	ThemeFrozenCitadel      Theme = "frozen_citadel"
	ThemeDesertTomb         Theme = "desert_tomb"
	ThemeFungalGrotto       Theme = "fungal_grotto"
	ThemeClockworkLabyrinth Theme = "clockwork_labyrinth"
	ThemeShadowKeep         Theme = "shadow_keep"
	ThemeElvenRuins         Theme = "elven_ruins"
	ThemeDwarvenMines       Theme = "dwarven_mines"
	ThemeDragonLair         Theme = "dragon_lair"
	ThemeAbyssalRift        Theme = "abyssal_rift"
	ThemeCelestialSpire     Theme = "celestial_spire"
	ThemeGoblinWarren       Theme = "goblin_warren"
	ThemeNecropolis         Theme = "necropolis"
	ThemePirateGrotto       Theme = "pirate_grotto"
	ThemeArcaneLibrary      Theme = "arcane_library"
	ThemeThievesDen         Theme = "thieves_den"
	ThemeJungleZiggurat     Theme = "jungle_ziggurat"
	ThemeStormPeak          Theme = "storm_peak"
	ThemeBanditHideout      Theme = "bandit_hideout"
	ThemeWitchBog           Theme = "witch_bog"
	ThemeTitanForge         Theme = "titan_forge"
	ThemeUnderdarkCity      Theme = "underdark_city"
	ThemeForgottenSewers    Theme = "forgotten_sewers"
	ThemeMirrorMaze         Theme = "mirror_maze"
	ThemeInsectHive         Theme = "insect_hive"
	ThemeSkyRuins           Theme = "sky_ruins"
	ThemeCursedMonastery    Theme = "cursed_monastery"
	ThemeLichSanctum        Theme = "lich_sanctum"
	ThemeElementalNexus     Theme = "elemental_nexus"
	ThemeCoralPalace        Theme = "coral_palace"
	ThemeBonePits           Theme = "bone_pits"
	ThemePetrifiedForest    Theme = "petrified_forest"
	ThemeObsidianVault      Theme = "obsidian_vault"
	ThemePlagueCatacombs    Theme = "plague_catacombs"
	ThemeDreamRealm         Theme = "dream_realm"
	ThemeVoidCitadel        Theme = "void_citadel"
	ThemeRuinedObservatory  Theme = "ruined_observatory"
	ThemeSerpentTemple      Theme = "serpent_temple"
	ThemeIronPrison         Theme = "iron_prison"
	ThemeMushroomKingdom    Theme = "mushroom_kingdom"
	ThemeDemonGate          Theme = "demon_gate"
	ThemeGhostShip          Theme = "ghost_ship"
	ThemeGiantHall          Theme = "giant_hall"
	ThemeRuneVault          Theme = "rune_vault"
	ThemeBeastDen           Theme = "beast_den"
	ThemeTimeRuins          Theme = "time_ruins"
)

// AllThemes lists every theme in declaration order.
var AllThemes = []Theme{
	ThemeAncientTemple, ThemeVolcanicFortress, ThemeCrystalCaverns, ThemeSunkenCity,
	ThemeHauntedCrypt, ThemeFrozenCitadel, ThemeDesertTomb, ThemeFungalGrotto,
	ThemeClockworkLabyrinth, ThemeShadowKeep, ThemeElvenRuins, ThemeDwarvenMines,
	ThemeDragonLair, ThemeAbyssalRift, ThemeCelestialSpire, ThemeGoblinWarren,
	ThemeNecropolis, ThemePirateGrotto, ThemeArcaneLibrary, ThemeThievesDen,
	ThemeJungleZiggurat, ThemeStormPeak, ThemeBanditHideout, ThemeWitchBog,
	ThemeTitanForge, ThemeUnderdarkCity, ThemeForgottenSewers, ThemeMirrorMaze,
	ThemeInsectHive, ThemeSkyRuins, ThemeCursedMonastery, ThemeLichSanctum,
	ThemeElementalNexus, ThemeCoralPalace, ThemeBonePits, ThemePetrifiedForest,
	ThemeObsidianVault, ThemePlagueCatacombs, ThemeDreamRealm, ThemeVoidCitadel,
	ThemeRuinedObservatory, ThemeSerpentTemple, ThemeIronPrison, ThemeMushroomKingdom,
	ThemeDemonGate, ThemeGhostShip, ThemeGiantHall, ThemeRuneVault,
	ThemeBeastDen, ThemeTimeRuins,
}

var themeSet = func() map[Theme]bool {
	m := make(map[Theme]bool, len(AllThemes))
	for _, t := range AllThemes {
		m[t] = true
	}
	return m
}()

// Valid reports whether t is one of the enumerated themes.
func (t Theme) Valid() bool {
	return themeSet[t]
}
