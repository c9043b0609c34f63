package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/epreuvespro/epreuvespro/internal/pkg/env"
)

func main() {
	// charge les variables du fichier .env
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	user := env.GetEnv("DB_USER", "epreuvespro")
	host := env.GetEnv("DB_HOST", "db")
	port := env.GetEnv("DB_PORT", "3306")
	name := env.GetEnv("DB_NAME", "epreuvespro")

	dbURL := fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true&parseTime=true",
		user,
		env.GetEnv("DB_PASSWORD", "epreuvespro"),
		host,
		port,
		name,
	)

	log.Printf("Connexion à la base : %s@%s:%s/%s", user, host, port, name)

	m, err := migrate.New(
		"file://"+env.GetEnv("MIGRATIONS_PATH", "migrations"),
		dbURL,
	)
	if err != nil {
		log.Fatalf("Initialisation des migrations impossible : %v", err)
	}

	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Printf("Fermeture des ressources de migration : %v, %v", sourceErr, dbErr)
		}
	}()

	switch command {
	case "up":
		if err := m.Up(); errors.Is(err, migrate.ErrNoChange) {
			log.Println("Aucun changement : la base est déjà à jour")
		} else if err != nil {
			log.Fatalf("Échec des migrations : %v", err)
		} else {
			log.Println("Migrations appliquées")
		}

	case "down":
		if err := m.Steps(-1); err != nil {
			log.Fatalf("Échec du retour arrière : %v", err)
		}
		log.Println("Dernière migration annulée")

	case "goto":
		version := versionArg()
		if err := m.Migrate(version); errors.Is(err, migrate.ErrNoChange) {
			log.Printf("Aucun changement : la base est déjà en version %d", version)
		} else if err != nil {
			log.Fatalf("Échec de la migration vers la version %d : %v", version, err)
		} else {
			log.Printf("Base migrée en version %d", version)
		}

	case "force":
		// clears the dirty flag after a failed migration was repaired by hand
		version := versionArg()
		if err := m.Force(int(version)); err != nil {
			log.Fatalf("Impossible de forcer la version %d : %v", version, err)
		}
		log.Printf("Version forcée à %d", version)

	case "status":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Println("Aucune migration appliquée pour l'instant")
			return
		}
		if err != nil {
			log.Fatalf("Lecture de la version impossible : %v", err)
		}
		dirtyStatus := ""
		if dirty {
			dirtyStatus = " (dirty)"
		}
		log.Printf("Version actuelle : %d%s", version, dirtyStatus)

	default:
		printUsage()
		os.Exit(1)
	}
}

func versionArg() uint {
	if len(os.Args) < 3 {
		log.Fatalf("Indiquez un numéro de version")
	}
	version, err := strconv.ParseUint(os.Args[2], 10, 64)
	if err != nil {
		log.Fatalf("Numéro de version invalide : %v", err)
	}
	return uint(version)
}

func printUsage() {
	fmt.Println("Usage : go run cmd/migrate/main.go [commande]")
	fmt.Println("Commandes :")
	fmt.Println("  up      - applique toutes les migrations en attente")
	fmt.Println("  down    - annule la dernière migration")
	fmt.Println("  goto N  - migre vers la version N")
	fmt.Println("  force N - force la version N (base marquée dirty)")
	fmt.Println("  status  - affiche la version courante")
}
