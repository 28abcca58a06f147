package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// Ручное управление миграциями PostgreSQL: применение, откат и снятие
// признака dirty после неудачной миграции
func main() {
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "строка подключения PostgreSQL (по умолчанию DATABASE_URL)")
	path := flag.String("path", "migrations", "каталог SQL-миграций")
	down := flag.Int("down", 0, "откатить N миграций")
	force := flag.Int("force", -1, "принудительно установить версию (снимает dirty)")
	version := flag.Bool("version", false, "показать текущую версию и выйти")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("не задана строка подключения: используйте -dsn или DATABASE_URL")
	}

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal(err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+*path, "postgres", driver)
	if err != nil {
		log.Fatal(err)
	}

	switch {
	case *version:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("Миграции ещё не применялись")
			return
		}
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Версия: %d, dirty: %v\n", v, dirty)
	case *force >= 0:
		fmt.Printf("Принудительная установка версии %d...\n", *force)
		if err := m.Force(*force); err != nil {
			log.Fatalf("Failed to force version: %v", err)
		}
		fmt.Println("Готово: признак dirty снят.")
	case *down > 0:
		if err := m.Steps(-*down); err != nil {
			log.Fatalf("Failed to roll back: %v", err)
		}
		fmt.Printf("Откачено миграций: %d\n", *down)
	default:
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("База данных уже актуальна")
			return
		}
		if err != nil {
			log.Fatalf("Failed to migrate: %v", err)
		}
		fmt.Println("Миграции применены")
	}
}
